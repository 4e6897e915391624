package armap

import (
	"github.com/banshee-data/armap/internal/monitoring"
)

// AggregatorConfig holds the acceptance policy and live marker styling.
type AggregatorConfig struct {
	// MaxPoints caps the number of accepted points across all sources.
	MaxPoints int

	// ConfidenceThreshold is exclusive: a point is kept only when its
	// confidence is strictly greater.
	ConfidenceThreshold float32

	// FullReplace evicts a source's points before an update is applied.
	// When false, updates are filtered additively into the remaining budget.
	FullReplace bool

	// Marker styling for accepted points.
	PointSize  float32
	PointColor Color
	Root       string
}

// DefaultAggregatorConfig returns the default acceptance policy.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxPoints:           2000,
		ConfidenceThreshold: 0.5,
		FullReplace:         true,
		PointSize:           0.02,
		PointColor:          Color{1, 1, 1, 1},
		Root:                "live",
	}
}

// AggregatorStats counts acceptance outcomes since creation.
type AggregatorStats struct {
	Accepted           int `json:"accepted"`
	DroppedByCap       int `json:"dropped_by_cap"`
	DroppedByThreshold int `json:"dropped_by_threshold"`
	Evicted            int `json:"evicted"`
	Advisories         int `json:"advisories"`
	VisualFailures     int `json:"visual_failures"`
}

// Aggregator maintains a bounded, confidence-filtered view of tracked
// points partitioned by source. It is driven from a single goroutine.
type Aggregator struct {
	cfg AggregatorConfig
	vis Visualizer

	sources  map[TrackableID][]TrackedPoint
	order    []TrackableID // source first-seen order
	accepted int
	stats    AggregatorStats
}

// NewAggregator creates an empty aggregator. vis may be nil, in which case
// points are tracked without visual markers.
func NewAggregator(cfg AggregatorConfig, vis Visualizer) *Aggregator {
	if cfg.MaxPoints < 0 {
		cfg.MaxPoints = 0
	}
	return &Aggregator{
		cfg:     cfg,
		vis:     vis,
		sources: make(map[TrackableID][]TrackedPoint),
	}
}

// Config returns the aggregator's configuration.
func (a *Aggregator) Config() AggregatorConfig {
	return a.cfg
}

// OnSourceAdded filters a new batch into the store and returns how many
// points were accepted.
func (a *Aggregator) OnSourceAdded(id TrackableID, positions []Vec3, confidences []float32) int {
	return a.accept(id, positions, confidences)
}

// OnSourceUpdated applies a new batch for id. In full-replace mode the
// source's previous points are evicted first, vacating their budget.
func (a *Aggregator) OnSourceUpdated(id TrackableID, positions []Vec3, confidences []float32) int {
	if a.cfg.FullReplace {
		a.evict(id)
	}
	return a.accept(id, positions, confidences)
}

// OnSourceRemoved evicts every point owned by id and returns the count.
func (a *Aggregator) OnSourceRemoved(id TrackableID) int {
	n := a.evict(id)
	a.forget(id)
	return n
}

// AcceptedCount returns the current global accepted point count.
func (a *Aggregator) AcceptedCount() int {
	return a.accepted
}

// SourceCount returns the number of accepted points owned by id.
func (a *Aggregator) SourceCount(id TrackableID) int {
	return len(a.sources[id])
}

// Points returns a copy of the points owned by id in arrival order.
func (a *Aggregator) Points(id TrackableID) []TrackedPoint {
	pts := a.sources[id]
	out := make([]TrackedPoint, len(pts))
	copy(out, pts)
	return out
}

// Sources returns the known source ids in first-seen order.
func (a *Aggregator) Sources() []TrackableID {
	out := make([]TrackableID, len(a.order))
	copy(out, a.order)
	return out
}

// Positions returns every accepted position, grouped by source in
// first-seen order. It makes the aggregator a PointSource for Save.
func (a *Aggregator) Positions() []Vec3 {
	out := make([]Vec3, 0, a.accepted)
	for _, id := range a.order {
		for _, p := range a.sources[id] {
			out = append(out, p.Position)
		}
	}
	return out
}

// Stats returns acceptance counters.
func (a *Aggregator) Stats() AggregatorStats {
	return a.stats
}

// ClearAll evicts every point from every source. Calling it on an empty
// aggregator is a no-op.
func (a *Aggregator) ClearAll() {
	for _, id := range a.order {
		a.evict(id)
	}
	a.sources = make(map[TrackableID][]TrackedPoint)
	a.order = a.order[:0]
}

func (a *Aggregator) accept(id TrackableID, positions []Vec3, confidences []float32) int {
	if _, ok := a.sources[id]; !ok {
		a.sources[id] = nil
		a.order = append(a.order, id)
	}

	taken := 0
	visFailures := 0
	for i, pos := range positions {
		if a.accepted >= a.cfg.MaxPoints {
			dropped := len(positions) - i
			a.stats.DroppedByCap += dropped
			a.stats.Advisories++
			monitoring.Warnf("[Aggregator] point budget reached (%d/%d): dropped %d points from source %s",
				a.accepted, a.cfg.MaxPoints, dropped, id)
			break
		}

		conf := float32(1.0)
		if i < len(confidences) {
			conf = confidences[i]
		}
		if !(conf > a.cfg.ConfidenceThreshold) {
			a.stats.DroppedByThreshold++
			continue
		}

		pt := TrackedPoint{Position: pos, Confidence: conf, Source: id}
		if a.vis != nil {
			h, err := a.vis.Instantiate(Marker{
				Kind:     MarkerPoint,
				Position: pos,
				Rotation: IdentityQuat,
				Scale:    Uniform(a.cfg.PointSize),
				Color:    a.cfg.PointColor,
				Parent:   a.cfg.Root,
			})
			if err != nil {
				visFailures++
			} else {
				pt.Handle = h
			}
		}

		a.sources[id] = append(a.sources[id], pt)
		a.accepted++
		taken++
	}

	if visFailures > 0 {
		a.stats.VisualFailures += visFailures
		monitoring.Logf("[Aggregator] %d markers for source %s could not be instantiated", visFailures, id)
	}
	a.stats.Accepted += taken
	return taken
}

// evict destroys the visual handles owned by id and frees their budget.
// The source stays known so its first-seen order survives full replaces.
func (a *Aggregator) evict(id TrackableID) int {
	pts, ok := a.sources[id]
	if !ok {
		return 0
	}
	for _, p := range pts {
		if p.Handle != "" && a.vis != nil {
			a.vis.Destroy(p.Handle)
		}
	}
	a.accepted -= len(pts)
	a.stats.Evicted += len(pts)
	a.sources[id] = nil
	return len(pts)
}

func (a *Aggregator) forget(id TrackableID) {
	if _, ok := a.sources[id]; !ok {
		return
	}
	delete(a.sources, id)
	for i, known := range a.order {
		if known == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}
