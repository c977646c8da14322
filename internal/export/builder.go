package export

import (
	"context"
	"fmt"
)

// WriterConfig describes one entity type's export target (§4.9). PathTemplate may
// contain {step}, {variable}, {replicate} tokens; which tokens a format requires or
// strips is format-specific (see ExpandPath/RequireStepOrVariable).
type WriterConfig struct {
	EntityType    string
	Format        string // csv | stdout | memory | netcdf | geotiff | minio
	PathTemplate  string
	ChunkSize     int
	QueueCapacity int
	MinIO         *MinIOConfig
}

// Builder assembles a Router from a set of WriterConfigs, one Pipeline per entity type.
// Generalized from the teacher's ViewBuilder[DataModel, ViewModel] generic pattern: there
// the builder wired a chan of DataModel through a view-model conversion into N views; here
// it wires per-type Records through a chosen backend's Writer into N pipelines.
type Builder struct {
	ctx     context.Context
	configs []WriterConfig
}

// NewBuilder returns a Builder whose pipelines are torn down when ctx is cancelled.
func NewBuilder(ctx context.Context) *Builder {
	return &Builder{ctx: ctx}
}

// WithWriter registers one entity type's export target.
func (b *Builder) WithWriter(cfg WriterConfig) *Builder {
	b.configs = append(b.configs, cfg)
	return b
}

// Build constructs every configured Writer and wraps each in a bounded Pipeline, returning
// a Router over the result. An invalid format or a GeoTIFF config missing {step}/{variable}
// fails the whole build (§4.9 scenario S6).
func (b *Builder) Build() (*Router, error) {
	pipelines := make(map[string]*Pipeline, len(b.configs))
	for _, cfg := range b.configs {
		w, err := newWriter(cfg)
		if err != nil {
			return nil, fmt.Errorf("export: building writer for %s: %w", cfg.EntityType, err)
		}
		label := cfg.EntityType + "." + cfg.Format
		pipelines[cfg.EntityType] = NewPipeline(b.ctx, label, w, cfg.ChunkSize, cfg.QueueCapacity)
	}
	return NewRouter(pipelines), nil
}

func newWriter(cfg WriterConfig) (Writer, error) {
	switch cfg.Format {
	case "csv":
		return NewCSVWriter(cfg.PathTemplate)
	case "stdout":
		return NewStdoutWriter(), nil
	case "memory":
		return NewMemoryWriter(), nil
	case "netcdf":
		return NewNetCDFWriter(cfg.PathTemplate)
	case "geotiff":
		if err := RequireStepOrVariable("geotiff", cfg.PathTemplate); err != nil {
			return nil, err
		}
		return NewGeoTIFFWriter(cfg.PathTemplate), nil
	case "minio":
		if cfg.MinIO == nil {
			return nil, fmt.Errorf("export: minio format requires MinIO config")
		}
		return NewMinIOWriter(*cfg.MinIO, cfg.PathTemplate)
	default:
		return nil, fmt.Errorf("export: unknown writer format %q", cfg.Format)
	}
}
