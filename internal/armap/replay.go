package armap

import (
	"fmt"

	"github.com/banshee-data/armap/internal/monitoring"
)

// ReplayConfig holds the fixed styling applied to replayed maps.
type ReplayConfig struct {
	PointSize  float32
	PointColor Color
	PlaneColor Color

	// PlaneThickness is the proxy's extent along its up axis.
	PlaneThickness float32

	Root string
}

// DefaultReplayConfig returns the default replay styling.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		PointSize:      0.02,
		PointColor:     Color{0, 1, 0, 1},
		PlaneColor:     Color{0, 0.8, 1, 0.3},
		PlaneThickness: 0.01,
		Root:           "map",
	}
}

// Replayer draws loaded snapshots through a Visualizer and owns the
// handles it created.
type Replayer struct {
	cfg     ReplayConfig
	vis     Visualizer
	handles []Handle
}

// NewReplayer returns a Replayer drawing through vis.
func NewReplayer(cfg ReplayConfig, vis Visualizer) *Replayer {
	return &Replayer{cfg: cfg, vis: vis}
}

// PointMarker returns the marker used for a replayed point.
func (r *Replayer) PointMarker(p Vec3) Marker {
	return Marker{
		Kind:     MarkerPoint,
		Position: p,
		Rotation: IdentityQuat,
		Scale:    Uniform(r.cfg.PointSize),
		Color:    r.cfg.PointColor,
		Parent:   r.cfg.Root,
	}
}

// PlaneMarker returns the flat proxy for a replayed plane: centred on the
// plane, up axis along its normal, scaled (width, thickness, height).
func (r *Replayer) PlaneMarker(p PlaneDescriptor) Marker {
	return Marker{
		Kind:     MarkerPlane,
		Position: p.Center,
		Rotation: UpToNormal(p.Normal),
		Scale:    Vec3{X: p.Size.X, Y: r.cfg.PlaneThickness, Z: p.Size.Y},
		Color:    r.cfg.PlaneColor,
		Parent:   r.cfg.Root,
	}
}

// Replay instantiates one marker per point and one proxy per plane. If
// the visualiser rejects an object, everything created by this call is
// destroyed again and the error is returned.
func (r *Replayer) Replay(snap *MapSnapshot) error {
	if r.vis == nil {
		return fmt.Errorf("%w: visualiser", ErrMissingCollaborator)
	}
	if snap == nil {
		return fmt.Errorf("replay: nil snapshot")
	}
	if n := len(snap.PlaneNormals); len(snap.PlanePositions) != n || len(snap.PlaneSizes) != n {
		return fmt.Errorf("replay: %w: plane arrays not parallel", ErrParse)
	}

	created := make([]Handle, 0, len(snap.Points)+snap.PlaneCount())
	rollback := func(err error) error {
		for _, h := range created {
			r.vis.Destroy(h)
		}
		return fmt.Errorf("replay: %w", err)
	}

	for _, p := range snap.Points {
		h, err := r.vis.Instantiate(r.PointMarker(p))
		if err != nil {
			return rollback(err)
		}
		created = append(created, h)
	}
	for i := 0; i < snap.PlaneCount(); i++ {
		h, err := r.vis.Instantiate(r.PlaneMarker(snap.Plane(i)))
		if err != nil {
			return rollback(err)
		}
		created = append(created, h)
	}

	r.handles = append(r.handles, created...)
	monitoring.Logf("[Replayer] map replayed: points=%d planes=%d", len(snap.Points), snap.PlaneCount())
	return nil
}

// ClearVisualization destroys every replayed object. It is idempotent.
func (r *Replayer) ClearVisualization() {
	if r.vis != nil {
		for _, h := range r.handles {
			r.vis.Destroy(h)
		}
	}
	r.handles = r.handles[:0]
}

// Count returns the number of live replayed objects.
func (r *Replayer) Count() int {
	return len(r.handles)
}
