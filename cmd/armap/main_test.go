package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/config"
	"github.com/banshee-data/armap/internal/monitor"
)

func TestSessionConfig_Defaults(t *testing.T) {
	sc := sessionConfig(config.EmptyMapConfig())
	assert.Equal(t, armap.DefaultSessionConfig(), sc)
}

func TestSessionConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_points: 10\nconfidence_threshold: 0.2\nfull_replace: false\nmap_dir: scans\n"), 0644))

	cfg, err := config.LoadMapConfig(path)
	require.NoError(t, err)
	sc := sessionConfig(cfg)

	assert.Equal(t, 10, sc.Aggregator.MaxPoints)
	assert.InDelta(t, 0.2, sc.Aggregator.ConfidenceThreshold, 1e-6)
	assert.False(t, sc.Aggregator.FullReplace)
	assert.Equal(t, "scans", sc.MapDir)
}

func TestReplayEvents(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "session.ndjson")
	require.NoError(t, os.WriteFile(logPath, []byte(
		`{"pointClouds":{"added":[{"id":"a","positions":[{"x":1,"y":0,"z":0},{"x":2,"y":0,"z":0}]}]}}`+"\n"+
			`{"planes":{"added":[{"id":"p","normal":{"x":0,"y":1,"z":0},"center":{"x":0,"y":0,"z":0},"size":{"x":1,"y":1}}]}}`+"\n",
	), 0644))

	session := armap.NewSession(armap.DefaultSessionConfig(), armap.Collaborators{
		Visualizer: armap.NewMemoryVisualizer(),
		Planes:     armap.NewPlaneRegistry(),
		Store:      armap.NewStore(nil),
	})
	session.Start()
	srv, err := monitor.NewServer(monitor.ServerConfig{Session: session})
	require.NoError(t, err)

	n, err := replayEvents(srv, logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, session.Aggregator().AcceptedCount())
	assert.Equal(t, 1, session.Planes().Count())

	_, err = replayEvents(srv, filepath.Join(dir, "missing.ndjson"))
	assert.Error(t, err)
}
