package armap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/banshee-data/armap/internal/fsutil"
	"github.com/banshee-data/armap/internal/monitoring"
)

var (
	// ErrNotFound is returned by Load when the map file does not exist.
	ErrNotFound = errors.New("map file not found")

	// ErrParse is returned by Load when the file is not a map record.
	ErrParse = errors.New("malformed map file")

	// ErrIO is returned by Save when the map file cannot be written.
	ErrIO = errors.New("map file write failed")

	// ErrMissingCollaborator is returned when an operation needs a
	// collaborator that was never wired up.
	ErrMissingCollaborator = errors.New("missing collaborator")
)

// PointSource supplies the positions a snapshot captures.
type PointSource interface {
	Positions() []Vec3
}

// PlaneSource supplies the planes a snapshot captures, in iteration order.
type PlaneSource interface {
	Planes() []PlaneDescriptor
}

// MapSnapshot is the persisted record: flat point positions plus three
// index-aligned plane arrays. It carries no identifiers.
type MapSnapshot struct {
	Points         []Vec3 `json:"points"`
	PlaneNormals   []Vec3 `json:"planeNormals"`
	PlanePositions []Vec3 `json:"planePositions"`
	PlaneSizes     []Vec2 `json:"planeSizes"`
}

// NewSnapshot copies the current state of points and planes.
func NewSnapshot(points PointSource, planes PlaneSource) *MapSnapshot {
	snap := &MapSnapshot{
		Points:         append([]Vec3{}, points.Positions()...),
		PlaneNormals:   []Vec3{},
		PlanePositions: []Vec3{},
		PlaneSizes:     []Vec2{},
	}
	for _, p := range planes.Planes() {
		snap.PlaneNormals = append(snap.PlaneNormals, p.Normal)
		snap.PlanePositions = append(snap.PlanePositions, p.Center)
		snap.PlaneSizes = append(snap.PlaneSizes, p.Size)
	}
	return snap
}

// PlaneCount returns the number of planes in the snapshot.
func (s *MapSnapshot) PlaneCount() int {
	return len(s.PlaneNormals)
}

// Plane reassembles plane i from the parallel arrays.
func (s *MapSnapshot) Plane(i int) PlaneDescriptor {
	return PlaneDescriptor{
		Normal: s.PlaneNormals[i],
		Center: s.PlanePositions[i],
		Size:   s.PlaneSizes[i],
	}
}

// Planes returns every plane, making a loaded snapshot a PlaneSource.
func (s *MapSnapshot) Planes() []PlaneDescriptor {
	out := make([]PlaneDescriptor, s.PlaneCount())
	for i := range out {
		out[i] = s.Plane(i)
	}
	return out
}

// Positions returns the snapshot's points, making it a PointSource.
func (s *MapSnapshot) Positions() []Vec3 {
	return s.Points
}

// EncodeSnapshot serialises snap as a single JSON object.
func EncodeSnapshot(snap *MapSnapshot) ([]byte, error) {
	out := *snap
	normalise(&out)
	return json.Marshal(&out)
}

// DecodeSnapshot parses a map record. Absent or null arrays decode as
// empty. It fails with ErrParse when the input is not exactly one JSON
// object of the expected shape, when an element is null or lacks a
// component, or when the plane arrays differ in length.
func DecodeSnapshot(data []byte) (*MapSnapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrParse)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var w wireSnapshot
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after map record", ErrParse)
	}

	var snap MapSnapshot
	var err error
	if snap.Points, err = w.vec3s("points", w.Points); err != nil {
		return nil, err
	}
	if snap.PlaneNormals, err = w.vec3s("planeNormals", w.PlaneNormals); err != nil {
		return nil, err
	}
	if snap.PlanePositions, err = w.vec3s("planePositions", w.PlanePositions); err != nil {
		return nil, err
	}
	if snap.PlaneSizes, err = w.vec2s("planeSizes", w.PlaneSizes); err != nil {
		return nil, err
	}

	n := len(snap.PlaneNormals)
	if len(snap.PlanePositions) != n || len(snap.PlaneSizes) != n {
		return nil, fmt.Errorf("%w: plane arrays not parallel (normals=%d positions=%d sizes=%d)",
			ErrParse, n, len(snap.PlanePositions), len(snap.PlaneSizes))
	}
	return &snap, nil
}

// wireSnapshot mirrors MapSnapshot with every component optional so that
// null elements and missing components can be told apart from zeros.
type wireSnapshot struct {
	Points         []*wireVec `json:"points"`
	PlaneNormals   []*wireVec `json:"planeNormals"`
	PlanePositions []*wireVec `json:"planePositions"`
	PlaneSizes     []*wireVec `json:"planeSizes"`
}

type wireVec struct {
	X *float32 `json:"x"`
	Y *float32 `json:"y"`
	Z *float32 `json:"z"`
}

func (wireSnapshot) vec3s(key string, in []*wireVec) ([]Vec3, error) {
	out := make([]Vec3, len(in))
	for i, v := range in {
		if v == nil || v.X == nil || v.Y == nil || v.Z == nil {
			return nil, fmt.Errorf("%w: %s[%d] is not an {x,y,z} vector", ErrParse, key, i)
		}
		out[i] = Vec3{X: *v.X, Y: *v.Y, Z: *v.Z}
	}
	return out, nil
}

func (wireSnapshot) vec2s(key string, in []*wireVec) ([]Vec2, error) {
	out := make([]Vec2, len(in))
	for i, v := range in {
		if v == nil || v.X == nil || v.Y == nil {
			return nil, fmt.Errorf("%w: %s[%d] is not an {x,y} vector", ErrParse, key, i)
		}
		out[i] = Vec2{X: *v.X, Y: *v.Y}
	}
	return out, nil
}

func normalise(s *MapSnapshot) {
	if s.Points == nil {
		s.Points = []Vec3{}
	}
	if s.PlaneNormals == nil {
		s.PlaneNormals = []Vec3{}
	}
	if s.PlanePositions == nil {
		s.PlanePositions = []Vec3{}
	}
	if s.PlaneSizes == nil {
		s.PlaneSizes = []Vec2{}
	}
}

// Store reads and writes map files through a FileSystem.
type Store struct {
	fs fsutil.FileSystem
}

// NewStore returns a Store over fsys; nil selects the OS filesystem.
func NewStore(fsys fsutil.FileSystem) *Store {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Store{fs: fsys}
}

// FileSystem returns the store's filesystem.
func (s *Store) FileSystem() fsutil.FileSystem {
	return s.fs
}

// Save captures points and planes and writes them atomically to path.
// Write failures wrap ErrIO; in-memory state is never touched.
func (s *Store) Save(points PointSource, planes PlaneSource, path string) (*MapSnapshot, error) {
	if points == nil {
		return nil, fmt.Errorf("%w: point source", ErrMissingCollaborator)
	}
	if planes == nil {
		return nil, fmt.Errorf("%w: plane source", ErrMissingCollaborator)
	}

	snap := NewSnapshot(points, planes)
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrIO, path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
		}
	}
	if err := fsutil.WriteFileAtomic(s.fs, path, data, 0644); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	monitoring.Logf("[MapStore] map saved: path=%s points=%d planes=%d bytes=%d",
		path, len(snap.Points), snap.PlaneCount(), len(data))
	return snap, nil
}

// Load reads the map record at path.
func (s *Store) Load(path string) (*MapSnapshot, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	monitoring.Logf("[MapStore] map loaded: path=%s points=%d planes=%d",
		path, len(snap.Points), snap.PlaneCount())
	return snap, nil
}
