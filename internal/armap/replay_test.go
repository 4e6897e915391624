package armap

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVecNear(t *testing.T, want, got Vec3) {
	t.Helper()
	const tol = 1e-5
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestUpToNormal(t *testing.T) {
	up := Vec3{Y: 1}
	normals := []Vec3{
		{Y: 1},
		{Y: -1},
		{X: 1},
		{Z: -1},
		{X: 1, Y: 1, Z: 1},
		{X: 0.1, Y: -1},
		{X: 3, Y: 0, Z: 4},
	}
	for _, n := range normals {
		q := UpToNormal(n)
		norm := math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W))
		assert.InDelta(t, 1, norm, 1e-5, "normal %v", n)

		l := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z)))
		assertVecNear(t, Vec3{X: n.X / l, Y: n.Y / l, Z: n.Z / l}, q.Rotate(up))
	}
}

func TestUpToNormalDegenerate(t *testing.T) {
	assert.Equal(t, IdentityQuat, UpToNormal(Vec3{}))
	assert.Equal(t, IdentityQuat, UpToNormal(Vec3{Y: 5}))
	assert.Equal(t, Quat{X: 1}, UpToNormal(Vec3{Y: -2}))
}

func TestReplay_DrawsPointsAndPlanes(t *testing.T) {
	vis := NewMemoryVisualizer()
	r := NewReplayer(DefaultReplayConfig(), vis)

	snap := &MapSnapshot{
		Points:         []Vec3{{X: 1}, {X: 2}, {X: 3}},
		PlaneNormals:   []Vec3{{Y: 1}},
		PlanePositions: []Vec3{{X: 1, Y: 2, Z: 3}},
		PlaneSizes:     []Vec2{{X: 2, Y: 4}},
	}
	require.NoError(t, r.Replay(snap))
	assert.Equal(t, 4, r.Count())
	assert.Equal(t, 3, vis.CountKind(MarkerPoint))
	assert.Equal(t, 1, vis.CountKind(MarkerPlane))

	objs := vis.Objects()
	assert.Equal(t, Vec3{X: 1}, objs[0].Position)
	assert.Equal(t, Color{0, 1, 0, 1}, objs[0].Color)
	assert.Equal(t, "map", objs[0].Parent)

	plane := objs[3]
	assert.Equal(t, Vec3{X: 1, Y: 2, Z: 3}, plane.Position)
	assert.Equal(t, Vec3{X: 2, Y: 0.01, Z: 4}, plane.Scale)
	assert.Equal(t, IdentityQuat, plane.Rotation)
	assert.Equal(t, Color{0, 0.8, 1, 0.3}, plane.Color)
}

func TestReplay_WallPlaneFacesNormal(t *testing.T) {
	r := NewReplayer(DefaultReplayConfig(), NewMemoryVisualizer())
	m := r.PlaneMarker(PlaneDescriptor{Normal: Vec3{Z: 1}, Size: Vec2{X: 1, Y: 2}})
	assertVecNear(t, Vec3{Z: 1}, m.Rotation.Rotate(Vec3{Y: 1}))
}

func TestReplay_EmptySnapshot(t *testing.T) {
	vis := NewMemoryVisualizer()
	r := NewReplayer(DefaultReplayConfig(), vis)
	require.NoError(t, r.Replay(&MapSnapshot{}))
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, vis.Len())
}

func TestReplay_AccumulatesUntilCleared(t *testing.T) {
	vis := NewMemoryVisualizer()
	r := NewReplayer(DefaultReplayConfig(), vis)
	snap := &MapSnapshot{Points: []Vec3{{X: 1}, {X: 2}}}

	require.NoError(t, r.Replay(snap))
	require.NoError(t, r.Replay(snap))
	assert.Equal(t, 4, vis.Len())

	r.ClearVisualization()
	assert.Equal(t, 0, vis.Len())
	assert.Equal(t, 0, r.Count())

	r.ClearVisualization()
	assert.Equal(t, 0, vis.Len())
}

func TestReplay_RollsBackOnVisualFailure(t *testing.T) {
	vis := NewMemoryVisualizer()
	r := NewReplayer(DefaultReplayConfig(), vis)
	require.NoError(t, r.Replay(&MapSnapshot{Points: []Vec3{{X: 9}}}))

	vis.FailAfter = 3
	err := r.Replay(&MapSnapshot{Points: line(5)})
	require.Error(t, err)

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 1, vis.Len())
	assert.Equal(t, Vec3{X: 9}, vis.Objects()[0].Position)
}

func TestReplay_Errors(t *testing.T) {
	err := NewReplayer(DefaultReplayConfig(), nil).Replay(&MapSnapshot{})
	assert.True(t, errors.Is(err, ErrMissingCollaborator))

	r := NewReplayer(DefaultReplayConfig(), NewMemoryVisualizer())
	assert.Error(t, r.Replay(nil))

	err = r.Replay(&MapSnapshot{PlaneNormals: []Vec3{{Y: 1}}})
	assert.True(t, errors.Is(err, ErrParse))
	assert.Equal(t, 0, r.Count())
}
