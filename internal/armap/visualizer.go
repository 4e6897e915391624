package armap

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Handle is an opaque reference to a visual object owned by a Visualizer.
type Handle string

// MarkerKind selects the primitive a Visualizer draws.
type MarkerKind int

const (
	// MarkerPoint is a small sphere-like marker for one tracked point.
	MarkerPoint MarkerKind = 0

	// MarkerPlane is a thin box standing in for a tracked plane.
	MarkerPlane MarkerKind = 1
)

// String returns the string representation of a MarkerKind.
func (k MarkerKind) String() string {
	switch k {
	case MarkerPoint:
		return "point"
	case MarkerPlane:
		return "plane"
	default:
		return "unknown"
	}
}

// Marker describes one visual object to instantiate.
type Marker struct {
	Kind     MarkerKind
	Position Vec3
	Rotation Quat
	Scale    Vec3
	Color    Color

	// Parent names the visualisation root the object hangs under.
	Parent string
}

// Visualizer is the rendering collaborator. The core only ever creates
// objects and destroys handles it previously received.
type Visualizer interface {
	Instantiate(m Marker) (Handle, error)
	Destroy(h Handle)
}

// MemoryVisualizer keeps instantiated markers in memory. It backs headless
// hosts and tests; it is not safe for concurrent use.
type MemoryVisualizer struct {
	objects map[Handle]Marker
	seq     map[Handle]uint64
	next    uint64

	created   int
	destroyed int

	// FailAfter, when positive, makes Instantiate fail once that many
	// objects are live.
	FailAfter int
}

// NewMemoryVisualizer returns an empty MemoryVisualizer.
func NewMemoryVisualizer() *MemoryVisualizer {
	return &MemoryVisualizer{
		objects: make(map[Handle]Marker),
		seq:     make(map[Handle]uint64),
	}
}

// Instantiate records m and returns a fresh handle.
func (v *MemoryVisualizer) Instantiate(m Marker) (Handle, error) {
	if v.FailAfter > 0 && len(v.objects) >= v.FailAfter {
		return "", fmt.Errorf("visualiser full: %d live objects", len(v.objects))
	}
	h := Handle(uuid.NewString())
	v.objects[h] = m
	v.seq[h] = v.next
	v.next++
	v.created++
	return h, nil
}

// Destroy forgets h. Unknown handles are ignored.
func (v *MemoryVisualizer) Destroy(h Handle) {
	if _, ok := v.objects[h]; !ok {
		return
	}
	delete(v.objects, h)
	delete(v.seq, h)
	v.destroyed++
}

// Len returns the number of live objects.
func (v *MemoryVisualizer) Len() int {
	return len(v.objects)
}

// Get returns the marker behind h.
func (v *MemoryVisualizer) Get(h Handle) (Marker, bool) {
	m, ok := v.objects[h]
	return m, ok
}

// Objects returns the live markers in creation order.
func (v *MemoryVisualizer) Objects() []Marker {
	handles := make([]Handle, 0, len(v.objects))
	for h := range v.objects {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return v.seq[handles[i]] < v.seq[handles[j]] })

	out := make([]Marker, len(handles))
	for i, h := range handles {
		out[i] = v.objects[h]
	}
	return out
}

// CountKind returns the number of live objects of kind k.
func (v *MemoryVisualizer) CountKind(k MarkerKind) int {
	n := 0
	for _, m := range v.objects {
		if m.Kind == k {
			n++
		}
	}
	return n
}

// Totals returns how many objects were ever created and destroyed.
func (v *MemoryVisualizer) Totals() (created, destroyed int) {
	return v.created, v.destroyed
}
