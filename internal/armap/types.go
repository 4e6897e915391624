package armap

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a position or direction in AR session space (metres, Y up).
// The JSON field names match the map files written by the mobile client.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vec2 is a 2D extent (width along local X, height along local Z).
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Color is an RGBA tuple with components in [0,1].
type Color [4]float32

// TrackableID identifies one point-cloud or plane source. It is opaque,
// stable across updates for that source and unique within a session.
type TrackableID string

// TrackedPoint is one accepted point. It is never mutated after creation.
type TrackedPoint struct {
	Position   Vec3
	Confidence float32
	Source     TrackableID

	// Handle is the visual marker created for this point, empty when the
	// aggregator runs without a visualiser or instantiation failed.
	Handle Handle
}

// PlaneDescriptor describes one tracked plane. Updates replace it wholesale.
type PlaneDescriptor struct {
	Normal Vec3
	Center Vec3
	Size   Vec2
}

func (v Vec3) r3() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func vec3From(v r3.Vec) Vec3 {
	return Vec3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// Uniform returns a Vec3 with all components set to s.
func Uniform(s float32) Vec3 {
	return Vec3{X: s, Y: s, Z: s}
}
