package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/spf13/viper"
)

// Artifact backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// DefaultSegmentNames are assigned to clusters in descending order of monetary value.
var DefaultSegmentNames = []string{
	"High-Value Customer",
	"Regular Shopper",
	"Occasional Shopper",
	"At-Risk Customer",
}

// SegmentNamesFor returns the names used when model.segment_names is unset:
// the first k default names, then "Segment N" for clusters beyond them.
func SegmentNamesFor(k int) []string {
	names := make([]string, 0, max(k, 0))
	for i := 0; i < k; i++ {
		if i < len(DefaultSegmentNames) {
			names = append(names, DefaultSegmentNames[i])
			continue
		}
		names = append(names, fmt.Sprintf("Segment %d", i+1))
	}
	return names
}

// ModelConfig controls segmenter fitting.
type ModelConfig struct {
	SegmentNames []string
	Tolerance    float64
	Seed         uint64
	K            int
	NInit        int
	MaxIter      int
}

// Config is the typed application configuration.
type Config struct {
	DatabasePath    string
	ArtifactBackend string
	ArtifactPath    string
	InputEncoding   string
	Model           ModelConfig
	Workers         int
	TopN            int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "$HOME/.local/share/spectrum/spectrum.db")
	v.SetDefault("artifacts.backend", BackendSQLite)
	v.SetDefault("artifacts.path", "")
	v.SetDefault("input.encoding", "latin1")
	v.SetDefault("model.k", 4)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.n_init", 10)
	v.SetDefault("model.max_iter", 300)
	v.SetDefault("model.tolerance", 1e-4)
	v.SetDefault("similarity.workers", 0)
	v.SetDefault("recommend.top_n", 5)
}

// Load builds a Config from v; defaults must already be registered.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath:    ExpandPath(v.GetString("database.path")),
		ArtifactBackend: strings.ToLower(v.GetString("artifacts.backend")),
		ArtifactPath:    ExpandPath(v.GetString("artifacts.path")),
		InputEncoding:   strings.ToLower(v.GetString("input.encoding")),
		Model: ModelConfig{
			K:            v.GetInt("model.k"),
			Seed:         v.GetUint64("model.seed"),
			NInit:        v.GetInt("model.n_init"),
			MaxIter:      v.GetInt("model.max_iter"),
			Tolerance:    v.GetFloat64("model.tolerance"),
			SegmentNames: v.GetStringSlice("model.segment_names"),
		},
		Workers: v.GetInt("similarity.workers"),
		TopN:    v.GetInt("recommend.top_n"),
	}

	if len(cfg.Model.SegmentNames) == 0 {
		cfg.Model.SegmentNames = SegmentNamesFor(cfg.Model.K)
	}
	if cfg.ArtifactBackend == BackendJSON && cfg.ArtifactPath == "" {
		cfg.ArtifactPath = DefaultArtifactPath()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.ArtifactBackend {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("%w: unknown artifacts.backend %q", common.ErrInvalidConfig, c.ArtifactBackend)
	}
	switch c.InputEncoding {
	case "latin1", "utf8":
	default:
		return fmt.Errorf("%w: unknown input.encoding %q", common.ErrInvalidConfig, c.InputEncoding)
	}
	if c.Model.K < 1 {
		return fmt.Errorf("%w: model.k must be at least 1, got %d", common.ErrInvalidConfig, c.Model.K)
	}
	if len(c.Model.SegmentNames) != c.Model.K {
		return fmt.Errorf("%w: model.segment_names has %d names for %d clusters",
			common.ErrInvalidConfig, len(c.Model.SegmentNames), c.Model.K)
	}
	if c.Model.NInit < 1 {
		return fmt.Errorf("%w: model.n_init must be at least 1", common.ErrInvalidConfig)
	}
	if c.Model.MaxIter < 1 {
		return fmt.Errorf("%w: model.max_iter must be at least 1", common.ErrInvalidConfig)
	}
	if c.Model.Tolerance < 0 {
		return fmt.Errorf("%w: model.tolerance must not be negative", common.ErrInvalidConfig)
	}
	if c.TopN < 1 {
		return fmt.Errorf("%w: recommend.top_n must be at least 1", common.ErrInvalidConfig)
	}
	return nil
}
