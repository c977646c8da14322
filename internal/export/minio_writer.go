package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig names the object-store target for the `minio` writer format (§4.9 "MinIO
// via minio-go/v7").
type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
}

// MinIOWriter uploads each chunk as one CSV-encoded object. The key expands PathTemplate
// with the chunk's first record's step and replicate ({variable} expands to empty), then
// appends this writer's chunk sequence number and ".csv", so every chunk gets its own key.
type MinIOWriter struct {
	client       *minio.Client
	bucket       string
	pathTemplate string
	seq          int
}

func NewMinIOWriter(cfg MinIOConfig, pathTemplate string) (*MinIOWriter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("export: constructing minio client: %w", err)
	}
	return &MinIOWriter{client: client, bucket: cfg.Bucket, pathTemplate: pathTemplate}, nil
}

func (w *MinIOWriter) WriteChunk(ctx context.Context, chunk []Record) error {
	if len(chunk) == 0 {
		return nil
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	names := fieldNames(chunk[0].Values)
	if err := cw.Write(append([]string{"step", "replicate", "entity_id"}, names...)); err != nil {
		return err
	}
	for _, rec := range chunk {
		row := append([]string{strconv.Itoa(rec.Step), strconv.Itoa(rec.Replicate), rec.EntityID})
		for _, n := range names {
			row = append(row, strconv.FormatFloat(rec.Values[n].Float(), 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	key := ExpandPath(w.pathTemplate, chunk[0].Step, "", chunk[0].Replicate)
	key = fmt.Sprintf("%s.%d.csv", key, w.seq)
	w.seq++

	_, err := w.client.PutObject(ctx, w.bucket, key, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("export: minio PutObject %s/%s: %w", w.bucket, key, err)
	}
	return nil
}

func (w *MinIOWriter) Close() error { return nil }
