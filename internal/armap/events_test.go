package armap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventLog = `{"pointClouds":{"added":[{"id":"pc1","positions":[{"x":1,"y":2,"z":3}],"confidences":[0.9]}]}}

{"planes":{"added":[{"id":"p1","normal":{"x":0,"y":1,"z":0},"center":{"x":0,"y":0,"z":0},"size":{"x":2,"y":3}}]}}
{"pointClouds":{"removed":["pc1"]},"planes":{"removed":["p1"]}}
`

func TestReadEvents(t *testing.T) {
	var events []Event
	err := ReadEvents(strings.NewReader(eventLog), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 3)

	require.NotNil(t, events[0].PointClouds)
	assert.Nil(t, events[0].Planes)
	pc := events[0].PointClouds.Added[0]
	assert.Equal(t, TrackableID("pc1"), pc.ID)
	assert.Equal(t, []Vec3{{X: 1, Y: 2, Z: 3}}, pc.Positions)
	assert.Equal(t, []float32{0.9}, pc.Confidences)

	p := events[1].Planes.Added[0]
	assert.Equal(t, PlaneDescriptor{Normal: Vec3{Y: 1}, Size: Vec2{X: 2, Y: 3}}, p.Descriptor())

	assert.Equal(t, []TrackableID{"pc1"}, events[2].PointClouds.Removed)
	assert.Equal(t, []TrackableID{"p1"}, events[2].Planes.Removed)
}

func TestReadEvents_BadLine(t *testing.T) {
	input := "{}\n{not json}\n"
	err := ReadEvents(strings.NewReader(input), func(Event) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEvents_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadEvents(strings.NewReader("{}\n{}\n{}\n"), func(Event) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 2, calls)
}
