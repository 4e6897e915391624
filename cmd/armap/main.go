// Command armap serves an AR mapping session over HTTP, with an optional
// gRPC health endpoint and SQLite snapshot catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/config"
	"github.com/banshee-data/armap/internal/fsutil"
	"github.com/banshee-data/armap/internal/mapdb"
	"github.com/banshee-data/armap/internal/monitor"
	"github.com/banshee-data/armap/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	grpcListen  = flag.String("grpc", "", "gRPC health listen address (disabled when empty)")
	configPath  = flag.String("config", "", "Path to a JSON or YAML mapping config")
	mapDir      = flag.String("map-dir", "", "Directory for saved maps (overrides config)")
	dbPath      = flag.String("db", "", "SQLite snapshot catalog path (disabled when empty)")
	eventsPath  = flag.String("events", "", "NDJSON event log to replay at startup")
	autoStart   = flag.Bool("start", false, "Start mapping immediately")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyMapConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadMapConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	sessCfg := sessionConfig(cfg)
	if *mapDir != "" {
		sessCfg.MapDir = *mapDir
	}

	collab := armap.Collaborators{
		Visualizer: armap.NewMemoryVisualizer(),
		Planes:     armap.NewPlaneRegistry(),
		Store:      armap.NewStore(fsutil.OSFileSystem{}),
	}

	var catalog *mapdb.DB
	if *dbPath != "" {
		var err error
		catalog, err = mapdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open snapshot catalog: %v", err)
		}
		defer catalog.Close()
		collab.Catalog = catalog
	}

	session := armap.NewSession(sessCfg, collab)
	health := monitor.NewHealthService()

	srv, err := monitor.NewServer(monitor.ServerConfig{
		Address: *listen,
		Session: session,
		Catalog: catalog,
		Health:  health,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if *autoStart {
		_ = srv.WithSession(func(s *armap.Session) error {
			s.Start()
			return nil
		})
	}
	if *eventsPath != "" {
		n, err := replayEvents(srv, *eventsPath)
		if err != nil {
			log.Fatalf("failed to replay events: %v", err)
		}
		log.Printf("replayed %d events from %s", n, *eventsPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *grpcListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Serve(ctx, *grpcListen); err != nil {
				log.Printf("gRPC health server error: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(ctx); err != nil {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	wg.Wait()
	log.Printf("armap %s stopped", version.Version)
}

// sessionConfig maps the file configuration onto session policy.
func sessionConfig(cfg *config.MapConfig) armap.SessionConfig {
	sc := armap.DefaultSessionConfig()

	sc.Aggregator.MaxPoints = cfg.GetMaxPoints()
	sc.Aggregator.ConfidenceThreshold = float32(cfg.GetConfidenceThreshold())
	sc.Aggregator.FullReplace = cfg.GetFullReplace()
	sc.Aggregator.PointSize = float32(cfg.GetPointSize())
	sc.Aggregator.PointColor = armap.Color(cfg.GetLivePointColor())

	sc.Replay.PointSize = float32(cfg.GetPointSize())
	sc.Replay.PointColor = armap.Color(cfg.GetMapPointColor())
	sc.Replay.PlaneColor = armap.Color(cfg.GetPlaneColor())
	sc.Replay.PlaneThickness = float32(cfg.GetPlaneThickness())

	sc.MapDir = cfg.GetMapDir()
	sc.MapFilename = cfg.GetMapFilename()
	return sc
}

// replayEvents feeds a recorded event log through the server's session lock.
func replayEvents(srv *monitor.Server, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	err = armap.ReadEvents(f, func(ev armap.Event) error {
		n++
		return srv.WithSession(func(s *armap.Session) error {
			return s.HandleEvent(ev)
		})
	})
	return n, err
}
