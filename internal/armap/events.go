package armap

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// PointCloud is one point-cloud trackable as reported by the tracking
// subsystem. Confidences is optional and parallel to Positions.
type PointCloud struct {
	ID          TrackableID `json:"id"`
	Positions   []Vec3      `json:"positions"`
	Confidences []float32   `json:"confidences,omitempty"`
}

// PointCloudChanges carries the three disjoint change sets of one
// notification cycle.
type PointCloudChanges struct {
	Added   []PointCloud  `json:"added,omitempty"`
	Updated []PointCloud  `json:"updated,omitempty"`
	Removed []TrackableID `json:"removed,omitempty"`
}

// Plane is one plane trackable.
type Plane struct {
	ID     TrackableID `json:"id"`
	Normal Vec3        `json:"normal"`
	Center Vec3        `json:"center"`
	Size   Vec2        `json:"size"`
}

// Descriptor returns the plane's geometry.
func (p Plane) Descriptor() PlaneDescriptor {
	return PlaneDescriptor{Normal: p.Normal, Center: p.Center, Size: p.Size}
}

// PlaneChanges carries plane change sets of one notification cycle.
type PlaneChanges struct {
	Added   []Plane       `json:"added,omitempty"`
	Updated []Plane       `json:"updated,omitempty"`
	Removed []TrackableID `json:"removed,omitempty"`
}

// Event is one line of a recorded tracking session. Either or both
// change sets may be present.
type Event struct {
	PointClouds *PointCloudChanges `json:"pointClouds,omitempty"`
	Planes      *PlaneChanges      `json:"planes,omitempty"`
}

// maxEventLine bounds a single NDJSON line; dense point clouds are large.
const maxEventLine = 16 * 1024 * 1024

// ReadEvents decodes newline-delimited JSON events from r and passes each
// to fn in order. Blank lines are skipped. It stops at the first decode
// or callback error.
func ReadEvents(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return fmt.Errorf("event line %d: %w", line, err)
		}
		if err := fn(ev); err != nil {
			return fmt.Errorf("event line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}
