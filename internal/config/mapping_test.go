package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyMapConfig_Defaults(t *testing.T) {
	cfg := EmptyMapConfig()

	assert.Equal(t, 2000, cfg.GetMaxPoints())
	assert.Equal(t, 0.5, cfg.GetConfidenceThreshold())
	assert.True(t, cfg.GetFullReplace())
	assert.Equal(t, 0.02, cfg.GetPointSize())
	assert.Equal(t, Color{1, 1, 1, 1}, cfg.GetLivePointColor())
	assert.Equal(t, Color{0, 1, 0, 1}, cfg.GetMapPointColor())
	assert.Equal(t, Color{0, 0.8, 1, 0.3}, cfg.GetPlaneColor())
	assert.Equal(t, 0.01, cfg.GetPlaneThickness())
	assert.Equal(t, "ar_map.json", cfg.GetMapFilename())
	assert.Equal(t, "maps", cfg.GetMapDir())
}

func TestMustLoadDefaultConfig_MatchesGetterDefaults(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyMapConfig()

	assert.Equal(t, empty.GetMaxPoints(), cfg.GetMaxPoints())
	assert.Equal(t, empty.GetConfidenceThreshold(), cfg.GetConfidenceThreshold())
	assert.Equal(t, empty.GetFullReplace(), cfg.GetFullReplace())
	assert.Equal(t, empty.GetPlaneColor(), cfg.GetPlaneColor())
	assert.Equal(t, empty.GetMapFilename(), cfg.GetMapFilename())
}

func TestLoadMapConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armap.json")
	body := `{
  "max_points": 500,
  "confidence_threshold": 0.7,
  "full_replace": false
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadMapConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.GetMaxPoints())
	assert.Equal(t, 0.7, cfg.GetConfidenceThreshold())
	assert.False(t, cfg.GetFullReplace())
	// unset fields fall back
	assert.Equal(t, 0.02, cfg.GetPointSize())
}

func TestLoadMapConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armap.yaml")
	body := `max_points: 10
map_point_color: [1, 0, 0, 1]
map_filename: office.json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadMapConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.GetMaxPoints())
	assert.Equal(t, Color{1, 0, 0, 1}, cfg.GetMapPointColor())
	assert.Equal(t, "office.json", cfg.GetMapFilename())
}

func TestLoadMapConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		body string
	}{
		{"bad extension", "armap.toml", "max_points = 1"},
		{"bad json", "bad.json", "{not json"},
		{"negative max points", "neg.json", `{"max_points": -1}`},
		{"threshold above one", "thr.json", `{"confidence_threshold": 1.5}`},
		{"colour out of range", "col.json", `{"plane_color": [0, 2, 0, 1]}`},
		{"map filename with directory", "name.json", `{"map_filename": "../escape.json"}`},
		{"zero plane thickness", "thick.yaml", "plane_thickness: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := LoadMapConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMapConfig_Missing(t *testing.T) {
	_, err := LoadMapConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
