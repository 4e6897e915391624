package mapplot

import (
	"bytes"
	"errors"
	"image/color"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/httputil"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleSnapshot() *armap.MapSnapshot {
	return &armap.MapSnapshot{
		Points:         []armap.Vec3{{X: 1, Z: 1}, {X: -1, Y: 0.5, Z: 2}, {X: 0.5, Z: -0.5}},
		PlaneNormals:   []armap.Vec3{{Y: 1}, {Z: 1}},
		PlanePositions: []armap.Vec3{{X: 0, Z: 0}, {X: 2, Y: 1, Z: 2}},
		PlaneSizes:     []armap.Vec2{{X: 2, Y: 4}, {X: 1, Y: 1}},
	}
}

func TestFootprint_FloorPlane(t *testing.T) {
	fp := Footprint(armap.PlaneDescriptor{
		Normal: armap.Vec3{Y: 1},
		Center: armap.Vec3{X: 1, Y: 2, Z: 3},
		Size:   armap.Vec2{X: 2, Y: 4},
	})
	require.Len(t, fp, 4)
	want := [][2]float64{{0, 1}, {2, 1}, {2, 5}, {0, 5}}
	for i, w := range want {
		assert.InDelta(t, w[0], fp[i].X, 1e-6)
		assert.InDelta(t, w[1], fp[i].Y, 1e-6)
	}
}

func TestFootprint_WallCollapsesToLine(t *testing.T) {
	fp := Footprint(armap.PlaneDescriptor{Normal: armap.Vec3{Z: 1}, Size: armap.Vec2{X: 2, Y: 2}})
	for _, p := range fp {
		assert.InDelta(t, 0, p.Y, 1e-5)
	}
}

func TestToColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0, G: 204, B: 255, A: 77}, ToColor(armap.Color{0, 0.8, 1, 0.3}))
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 0, A: 255}, ToColor(armap.Color{-1, 2, 0, 1}))
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, sampleSnapshot(), DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestWritePNG_EmptyMap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, &armap.MapSnapshot{}, DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	assert.Error(t, WritePNG(&buf, nil, DefaultOptions()))
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, SavePNG(path, sampleSnapshot(), DefaultOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestFetchSnapshot(t *testing.T) {
	data, err := armap.EncodeSnapshot(sampleSnapshot())
	require.NoError(t, err)

	client := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, string(data)).
		AddResponse(http.StatusOK, "[]").
		AddResponse(http.StatusNotFound, `{"error":"map file not found"}`)

	snap, err := FetchSnapshot(client, "http://localhost:8080/api/map/file?name=office")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)

	_, err = FetchSnapshot(client, "http://localhost:8080/api/map/file")
	assert.True(t, errors.Is(err, armap.ErrParse))

	_, err = FetchSnapshot(client, "http://localhost:8080/api/map/file")
	assert.Error(t, err)
	assert.Equal(t, 3, client.RequestCount())
}
