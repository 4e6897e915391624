package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/httputil"
)

// chartSeries is a top-down (X, Z) projection of what the session holds.
type chartSeries struct {
	live     []opts.ScatterData
	replayed []opts.ScatterData
	planes   []opts.ScatterData
	extent   float64
}

func topDown(points []armap.Vec3, ext *float64) []opts.ScatterData {
	out := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		x, z := float64(p.X), float64(p.Z)
		*ext = math.Max(*ext, math.Max(math.Abs(x), math.Abs(z)))
		out = append(out, opts.ScatterData{Value: []interface{}{x, z, p.Y}})
	}
	return out
}

func collectChartSeries(sess *armap.Session) chartSeries {
	cs := chartSeries{extent: 1}
	cs.live = topDown(sess.Aggregator().Positions(), &cs.extent)
	if snap := sess.LastLoaded(); snap != nil {
		cs.replayed = topDown(snap.Points, &cs.extent)
	}
	if reg := sess.Planes(); reg != nil {
		centres := make([]armap.Vec3, 0, reg.Count())
		for _, p := range reg.Planes() {
			centres = append(centres, p.Center)
		}
		cs.planes = topDown(centres, &cs.extent)
	}
	return cs
}

// handleMapChart renders live points, the replayed map and plane centres as
// an HTML scatter chart viewed from above.
func (s *Server) handleMapChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.Lock()
	cs := collectChartSeries(s.session)
	id := s.session.ID()
	s.mu.Unlock()

	pad := math.Ceil(cs.extent*1.1*10) / 10
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "AR Map", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "AR Map (top-down)",
			Subtitle: fmt.Sprintf("session=%s live=%d replayed=%d planes=%d", id, len(cs.live), len(cs.replayed), len(cs.planes)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("live", cs.live, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("replayed", cs.replayed, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("planes", cs.planes, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
