package splitter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.TargetClusterSize)
	assert.Equal(t, 4.0, cfg.SegmentizeM)
	assert.Equal(t, 7.5, cfg.SimplifyM)
	assert.True(t, cfg.SplitTags.IncludeWaterway)
	assert.True(t, cfg.SplitTags.IncludeRailway)
}

func TestConfigDefaultsFillsMinFeaturesFromTargetClusterSize(t *testing.T) {
	cfg := Config{TargetClusterSize: 20}
	resolved := cfg.Defaults()
	assert.Equal(t, 10, resolved.MinFeatures)
}

func TestConfigDefaultsDoesNotMutateReceiver(t *testing.T) {
	cfg := Config{TargetClusterSize: 20}
	_ = cfg.Defaults()
	assert.Equal(t, 0, cfg.MinFeatures)
}

func TestConfigValidateRejectsNonPositiveFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetClusterSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SegmentizeM = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig().Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.TargetClusterSize = 15
	cfg.KMeansSeed = 99
	require.NoError(t, SaveConfig(path, &cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.TargetClusterSize)
	assert.Equal(t, int64(99), loaded.KMeansSeed)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
