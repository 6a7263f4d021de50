package splitter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAOIBarePolygon(t *testing.T) {
	data := []byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	aoi, err := LoadAOI(data)
	require.NoError(t, err)
	assert.False(t, aoi.Multi)
	assert.Len(t, aoi.Polygon, 1)
}

func TestLoadAOIFeatureWrappedPolygon(t *testing.T) {
	data := []byte(`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`)
	aoi, err := LoadAOI(data)
	require.NoError(t, err)
	assert.False(t, aoi.Multi)
}

func TestLoadAOIFeatureCollectionSingleMember(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`)
	aoi, err := LoadAOI(data)
	require.NoError(t, err)
	assert.False(t, aoi.Multi)
}

func TestLoadAOIMultiPolygonReducesToConvexHull(t *testing.T) {
	data := []byte(`{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[5,5],[6,5],[6,6],[5,6],[5,5]]]
	]}`)
	aoi, err := LoadAOI(data)
	require.NoError(t, err)
	assert.True(t, aoi.Multi)
	assert.Greater(t, len(aoi.Polygon[0]), 0)
}

func TestLoadAOIRejectsEmptyPolygon(t *testing.T) {
	data := []byte(`{"type":"Polygon","coordinates":[]}`)
	_, err := LoadAOI(data)
	assert.Error(t, err)
}

func TestLoadAOIRejectsMultiMemberFeatureCollection(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[2,2],[3,2],[3,3],[2,3],[2,2]]]}}
	]}`)
	_, err := LoadAOI(data)
	assert.Error(t, err)
}

func TestLoadSplitLinesKeepsOnlyLineStrings(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"highway":"primary"},"geometry":{"type":"LineString","coordinates":[[0,0],[1,0]]}},
		{"type":"Feature","properties":{"building":"yes"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
	]}`)
	lines, err := LoadSplitLines(data)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "primary", lines[0].Tags["highway"])
}

func TestLoadFeaturesKeepsOnlyBuildingTaggedPolygons(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"building":"yes"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
		{"type":"Feature","properties":{"amenity":"school"},"geometry":{"type":"Polygon","coordinates":[[[2,2],[3,2],[3,3],[2,3],[2,2]]]}}
	]}`)
	features, err := LoadFeatures(data)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.InDelta(t, 0.5, features[0].Centroid[0], 1e-9)
	assert.InDelta(t, 0.5, features[0].Centroid[1], 1e-9)
}

func TestEncodeTaskPolygonsSkipsTombstonedAndSetsBuildingCount(t *testing.T) {
	tasks := []TaskPolygon{
		{TaskID: 0, Geom: square(0, 0, 1, 1), BuildingCount: 5},
		{TaskID: 1, Geom: square(1, 0, 2, 1), BuildingCount: 2, Tombstoned: true},
	}
	data, err := EncodeTaskPolygons(tasks)
	require.NoError(t, err)

	var fc struct {
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Len(t, fc.Features, 1)
	assert.EqualValues(t, 5, fc.Features[0].Properties["building_count"])
}
