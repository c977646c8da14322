// Package config loads simulation settings from YAML: grid extents, step range, sampling
// size, RNG seed, worker pool size, and export targets (§6 "simulation settings", as
// distinct from model compilation output -- see internal/model).
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerConfig is the viper-facing shape: `kind` names the config dialect, `def` is the
// nested settings body. Adapted from the teacher's reinforcement.OuterConfig two-stage
// unmarshal trick -- viper decodes the outer envelope into a map first, then that map is
// re-marshaled to YAML and unmarshaled again into the concrete typed struct below, which
// keeps viper's mapstructure tags out of the strongly-typed inner config entirely.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// GridSettings describes the simulation's geographic extent and cell size (§4.6).
type GridSettings struct {
	MinLat         float64 `yaml:"minLat"`
	MinLon         float64 `yaml:"minLon"`
	MaxLat         float64 `yaml:"maxLat"`
	MaxLon         float64 `yaml:"maxLon"`
	CellSizeMeters float64 `yaml:"cellSizeMeters"`
}

// ExportTarget configures one entity type's export pipeline (§4.9).
type ExportTarget struct {
	EntityType    string            `yaml:"entityType"`
	Format        string            `yaml:"format"`
	PathTemplate  string            `yaml:"pathTemplate"`
	ChunkSize     int               `yaml:"chunkSize"`
	QueueCapacity int               `yaml:"queueCapacity"`
	MinIO         map[string]string `yaml:"minio"`
}

// SimulationSettings is the full set of replicate-level knobs loaded from YAML (§6).
type SimulationSettings struct {
	Grid             GridSettings   `yaml:"grid"`
	StartStep        int            `yaml:"startStep"`
	EndStep          int            `yaml:"endStep"`
	SampleSize       int            `yaml:"sampleSize"`
	MasterSeed       int64          `yaml:"masterSeed"`
	Replicates       int            `yaml:"replicates"`
	WorkerPoolSize   int            `yaml:"workerPoolSize"`
	ExportTargets    []ExportTarget `yaml:"exportTargets"`
}

// FromYaml loads SimulationSettings from a YAML file at path, following the teacher's
// outer/inner two-stage viper+yaml unmarshal.
func FromYaml(path string) (*SimulationSettings, error) {
	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("config: unmarshaling outer envelope: %w", err)
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("config: remarshaling inner config: %w", err)
	}

	settings := &SimulationSettings{}
	if err := yaml.Unmarshal(spec, settings); err != nil {
		return nil, fmt.Errorf("config: unmarshaling inner config: %w", err)
	}
	return settings, nil
}
