package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTagsScalarizesMixedValues(t *testing.T) {
	raw := map[string]interface{}{
		"building": "yes",
		"levels":   float64(3),
		"locked":   true,
		"missing":  nil,
	}

	got := NormalizeTags(raw)
	assert.Equal(t, "yes", got["building"])
	assert.Equal(t, "3", got["levels"])
	assert.Equal(t, "true", got["locked"])
	assert.Equal(t, "", got["missing"])
}

func TestIsBuilding(t *testing.T) {
	assert.True(t, IsBuilding(map[string]string{"building": "yes"}))
	assert.True(t, IsBuilding(map[string]string{"building": "house"}))
	assert.False(t, IsBuilding(map[string]string{"building": ""}))
	assert.False(t, IsBuilding(map[string]string{"amenity": "school"}))
}

func TestDefaultSplitPredicate(t *testing.T) {
	cfg := DefaultConfig().SplitTags
	pred := DefaultSplitPredicate(cfg)

	assert.True(t, pred(map[string]string{"highway": "primary"}))
	assert.False(t, pred(map[string]string{"highway": "service"}))
	assert.False(t, pred(map[string]string{"highway": "track"}))
	assert.True(t, pred(map[string]string{"waterway": "river"}))
	assert.True(t, pred(map[string]string{"railway": "rail"}))
	assert.False(t, pred(map[string]string{"building": "yes"}))
}

func TestDefaultSplitPredicateRespectsDisabledWaterway(t *testing.T) {
	cfg := SplitTagConfig{IncludeWaterway: false, IncludeRailway: false}
	pred := DefaultSplitPredicate(cfg)
	assert.False(t, pred(map[string]string{"waterway": "river"}))
}
