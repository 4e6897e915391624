package armap

import (
	"github.com/banshee-data/armap/internal/monitoring"
)

// PlaneRegistry tracks plane trackables in first-seen order and acts as
// the PlaneSource for Save.
type PlaneRegistry struct {
	order  []TrackableID
	planes map[TrackableID]PlaneDescriptor
}

// NewPlaneRegistry returns an empty registry.
func NewPlaneRegistry() *PlaneRegistry {
	return &PlaneRegistry{planes: make(map[TrackableID]PlaneDescriptor)}
}

// OnPlaneAdded records a newly detected plane. A repeated add for a known
// id behaves like an update.
func (r *PlaneRegistry) OnPlaneAdded(id TrackableID, p PlaneDescriptor) {
	if _, ok := r.planes[id]; !ok {
		r.order = append(r.order, id)
		monitoring.Logf("[PlaneRegistry] new plane detected: %s", id)
	}
	r.planes[id] = p
}

// OnPlaneUpdated replaces the descriptor of id, keeping its position in
// iteration order. Unknown ids are added.
func (r *PlaneRegistry) OnPlaneUpdated(id TrackableID, p PlaneDescriptor) {
	if _, ok := r.planes[id]; !ok {
		r.order = append(r.order, id)
	}
	r.planes[id] = p
}

// OnPlaneRemoved drops id. Unknown ids are ignored.
func (r *PlaneRegistry) OnPlaneRemoved(id TrackableID) {
	if _, ok := r.planes[id]; !ok {
		return
	}
	delete(r.planes, id)
	for i, known := range r.order {
		if known == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	monitoring.Logf("[PlaneRegistry] plane removed: %s", id)
}

// Get returns the descriptor for id.
func (r *PlaneRegistry) Get(id TrackableID) (PlaneDescriptor, bool) {
	p, ok := r.planes[id]
	return p, ok
}

// Count returns the number of tracked planes.
func (r *PlaneRegistry) Count() int {
	return len(r.order)
}

// Planes returns every descriptor in first-seen order.
func (r *PlaneRegistry) Planes() []PlaneDescriptor {
	out := make([]PlaneDescriptor, len(r.order))
	for i, id := range r.order {
		out[i] = r.planes[id]
	}
	return out
}

// Clear forgets every plane.
func (r *PlaneRegistry) Clear() {
	r.order = r.order[:0]
	r.planes = make(map[TrackableID]PlaneDescriptor)
}
