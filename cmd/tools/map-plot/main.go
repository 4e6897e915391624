// Command map-plot renders a saved AR map as a top-down PNG. The map is
// read from a file or fetched from a running armap server.
package main

import (
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/fsutil"
	"github.com/banshee-data/armap/internal/httputil"
	"github.com/banshee-data/armap/internal/mapplot"
)

func main() {
	in := flag.String("in", "", "Map JSON file, or http(s) URL of a server's /api/map/file route")
	out := flag.String("out", "map.png", "Output PNG path")
	title := flag.String("title", "", "Plot title")
	size := flag.Float64("size", 8, "Plot width and height in inches")
	flag.Parse()

	if *in == "" {
		log.Fatal("-in is required")
	}

	snap, err := loadSnapshot(*in)
	if err != nil {
		log.Fatalf("failed to load map: %v", err)
	}

	opt := mapplot.DefaultOptions()
	if *title != "" {
		opt.Title = *title
	}
	opt.Width = vg.Length(*size) * vg.Inch
	opt.Height = opt.Width

	if err := mapplot.SavePNG(*out, snap, opt); err != nil {
		log.Fatalf("failed to render %s: %v", *out, err)
	}
	log.Printf("wrote %s: points=%d planes=%d", *out, len(snap.Points), snap.PlaneCount())
}

func loadSnapshot(src string) (*armap.MapSnapshot, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client := httputil.NewStandardClient(&http.Client{Timeout: 30 * time.Second})
		return mapplot.FetchSnapshot(client, src)
	}
	return armap.NewStore(fsutil.OSFileSystem{}).Load(src)
}
