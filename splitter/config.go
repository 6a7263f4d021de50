package splitter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the recognized pipeline options (spec §6.2). Fields are
// in the units a user would naturally supply them in (meters, feature
// counts); metersToDegrees converts the meter-valued thresholds to
// degrees where each is used (SegmentizeM at each Feature's centroid in
// S5, SimplifyM at the AOI centroid in S8), since all geometry here is
// WGS84 and "meters" is never the same as "degrees".
type Config struct {
	// TargetClusterSize (T) is the desired number of features per task.
	TargetClusterSize int `yaml:"target_cluster_size"`

	// MinFeatures (N_min) is the low-count/small-task threshold. Zero
	// means "use floor(T/2)", computed by Defaults.
	MinFeatures int `yaml:"min_features"`

	// SegmentizeM (delta_seg) is the max perimeter segment length in
	// meters used by Densify (S5).
	SegmentizeM float64 `yaml:"segmentize_m"`

	// SimplifyM (tau) is the Douglas-Peucker tolerance in meters used
	// by Simplify (S8).
	SimplifyM float64 `yaml:"simplify_m"`

	// SplitTags configures the linear-splitter predicate. See
	// DefaultSplitPredicate for the default behavior this overrides.
	SplitTags SplitTagConfig `yaml:"split_tags"`

	// KMeansSeed seeds S4's deterministic k-means++ clustering.
	KMeansSeed int64 `yaml:"kmeans_seed"`

	// MergeByFewestFeatures selects the source-variant LowCountMerge
	// tie-break rule (merge into the neighbour with the *fewest*
	// features) instead of the canonical largest-n rule (spec §9, Open
	// Questions). Default false: canonical rule. SmallMerge does not read
	// it; it always picks the neighbour with the longest shared boundary.
	MergeByFewestFeatures bool `yaml:"merge_by_fewest_features"`
}

// SplitTagConfig is the tag predicate configuration for S1 LineSplit.
type SplitTagConfig struct {
	// ExcludedHighway classifications are never used as splitters even
	// though they carry a highway tag.
	ExcludedHighway []string `yaml:"excluded_highway"`
	// IncludeWaterway keeps every waterway-tagged line as a splitter.
	IncludeWaterway bool `yaml:"include_waterway"`
	// IncludeRailway keeps every railway-tagged line as a splitter.
	IncludeRailway bool `yaml:"include_railway"`
}

// DefaultConfig returns the defaults from spec §6.2.
func DefaultConfig() Config {
	return Config{
		TargetClusterSize: 10,
		MinFeatures:       0, // resolved to floor(T/2) by Defaults()
		SegmentizeM:       4.0,
		SimplifyM:         7.5,
		SplitTags: SplitTagConfig{
			ExcludedHighway: []string{"service", "pedestrian", "track", "bus_guideway"},
			IncludeWaterway: true,
			IncludeRailway:  true,
		},
		KMeansSeed: 0,
	}
}

// Defaults fills in zero-valued fields with spec-mandated defaults and
// returns the resolved configuration. It never mutates the receiver.
func (c Config) Defaults() Config {
	out := c
	if out.TargetClusterSize <= 0 {
		out.TargetClusterSize = 10
	}
	if out.MinFeatures <= 0 {
		out.MinFeatures = out.TargetClusterSize / 2
	}
	if out.SegmentizeM <= 0 {
		out.SegmentizeM = 4.0
	}
	if out.SimplifyM <= 0 {
		out.SimplifyM = 7.5
	}
	if len(out.SplitTags.ExcludedHighway) == 0 && !out.SplitTags.IncludeWaterway && !out.SplitTags.IncludeRailway {
		out.SplitTags = DefaultConfig().SplitTags
	}
	return out
}

// LoadConfig loads pipeline configuration from a YAML file, following
// the same read-then-validate shape as the rest of this repository's
// configuration loaders.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	resolved := cfg.Defaults()
	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks field invariants beyond simple defaulting.
func (c Config) Validate() error {
	if c.TargetClusterSize <= 0 {
		return fmt.Errorf("target_cluster_size must be positive, got %d", c.TargetClusterSize)
	}
	if c.MinFeatures < 0 {
		return fmt.Errorf("min_features must not be negative, got %d", c.MinFeatures)
	}
	if c.SegmentizeM <= 0 {
		return fmt.Errorf("segmentize_m must be positive, got %f", c.SegmentizeM)
	}
	if c.SimplifyM <= 0 {
		return fmt.Errorf("simplify_m must be positive, got %f", c.SimplifyM)
	}
	return nil
}
