package armap

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/armap/internal/monitoring"
	"github.com/banshee-data/armap/internal/security"
)

// State is the session-level mapping state.
type State int

const (
	// StateIdle ignores tracking notifications.
	StateIdle State = 0

	// StateMapping feeds tracking notifications into the aggregator.
	StateMapping State = 1
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// SnapshotCatalog records saved snapshots. Implemented by mapdb.DB.
type SnapshotCatalog interface {
	RecordSnapshot(sessionID, name, path string, snap *MapSnapshot) error
}

// Collaborators are the external pieces a Session drives. Any of them may
// be nil; operations that need a missing one fail with
// ErrMissingCollaborator and leave state untouched.
type Collaborators struct {
	Visualizer Visualizer
	Planes     *PlaneRegistry
	Store      *Store

	// Catalog is optional; failures to record are logged, not returned.
	Catalog SnapshotCatalog
}

// SessionConfig groups the per-session policy.
type SessionConfig struct {
	Aggregator AggregatorConfig
	Replay     ReplayConfig

	// MapDir is where named maps are saved and loaded.
	MapDir string

	// MapFilename is used when a command names no map.
	MapFilename string
}

// DefaultSessionConfig returns the default policy.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Aggregator:  DefaultAggregatorConfig(),
		Replay:      DefaultReplayConfig(),
		MapDir:      "maps",
		MapFilename: "ar_map.json",
	}
}

// Session owns one mapping run: the point store, the replayed map and the
// Idle/Mapping state. It is not safe for concurrent use; hosts serialise
// commands and notifications through a single path.
type Session struct {
	id    string
	cfg   SessionConfig
	c     Collaborators
	state State

	agg        *Aggregator
	replayer   *Replayer
	lastLoaded *MapSnapshot
}

// NewSession creates an idle session. Missing collaborators are reported
// in the log but do not prevent construction.
func NewSession(cfg SessionConfig, c Collaborators) *Session {
	s := &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		c:        c,
		agg:      NewAggregator(cfg.Aggregator, c.Visualizer),
		replayer: NewReplayer(cfg.Replay, c.Visualizer),
	}
	if err := s.Validate(); err != nil {
		monitoring.Logf("[Session] %s created with missing collaborators: %v", s.id, err)
	}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Validate reports every collaborator that is not wired up.
func (s *Session) Validate() error {
	var errs []error
	if s.c.Planes == nil {
		errs = append(errs, fmt.Errorf("%w: plane registry", ErrMissingCollaborator))
	}
	if s.c.Store == nil {
		errs = append(errs, fmt.Errorf("%w: map store", ErrMissingCollaborator))
	}
	if s.c.Visualizer == nil {
		errs = append(errs, fmt.Errorf("%w: visualiser", ErrMissingCollaborator))
	}
	return errors.Join(errs...)
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Start moves the session to Mapping.
func (s *Session) Start() {
	if s.state == StateMapping {
		return
	}
	s.state = StateMapping
	monitoring.Logf("[Session] %s mapping started", s.id)
}

// Stop returns the session to Idle. Accepted points are kept.
func (s *Session) Stop() {
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	monitoring.Logf("[Session] %s mapping stopped: accepted=%d", s.id, s.agg.AcceptedCount())
}

// Aggregator returns the live point store.
func (s *Session) Aggregator() *Aggregator {
	return s.agg
}

// Store returns the map store, which may be nil.
func (s *Session) Store() *Store {
	return s.c.Store
}

// MapDir returns the directory named maps are resolved in.
func (s *Session) MapDir() string {
	return s.cfg.MapDir
}

// Planes returns the plane registry, which may be nil.
func (s *Session) Planes() *PlaneRegistry {
	return s.c.Planes
}

// HandlePointClouds applies one cycle of point-cloud changes: added, then
// updated, then removed. Notifications received while idle are dropped.
func (s *Session) HandlePointClouds(ch PointCloudChanges) {
	if s.state != StateMapping {
		monitoring.Logf("[Session] ignoring point cloud changes while %s", s.state)
		return
	}
	for _, pc := range ch.Added {
		s.agg.OnSourceAdded(pc.ID, pc.Positions, pc.Confidences)
	}
	for _, pc := range ch.Updated {
		s.agg.OnSourceUpdated(pc.ID, pc.Positions, pc.Confidences)
	}
	for _, id := range ch.Removed {
		s.agg.OnSourceRemoved(id)
	}
}

// HandlePlanes applies one cycle of plane changes.
func (s *Session) HandlePlanes(ch PlaneChanges) error {
	if s.c.Planes == nil {
		return fmt.Errorf("%w: plane registry", ErrMissingCollaborator)
	}
	if s.state != StateMapping {
		monitoring.Logf("[Session] ignoring plane changes while %s", s.state)
		return nil
	}
	for _, p := range ch.Added {
		s.c.Planes.OnPlaneAdded(p.ID, p.Descriptor())
	}
	for _, p := range ch.Updated {
		s.c.Planes.OnPlaneUpdated(p.ID, p.Descriptor())
	}
	for _, id := range ch.Removed {
		s.c.Planes.OnPlaneRemoved(id)
	}
	return nil
}

// HandleEvent dispatches a recorded or pushed tracking event. An event
// carrying plane changes is rejected whole when no plane registry is wired.
func (s *Session) HandleEvent(ev Event) error {
	if ev.Planes != nil && s.c.Planes == nil {
		return fmt.Errorf("%w: plane registry", ErrMissingCollaborator)
	}
	if ev.PointClouds != nil {
		s.HandlePointClouds(*ev.PointClouds)
	}
	if ev.Planes != nil {
		return s.HandlePlanes(*ev.Planes)
	}
	return nil
}

// MapPath resolves a map name to a file inside the map directory. An
// empty name selects the default map file.
func (s *Session) MapPath(name string) string {
	if name == "" {
		name = s.cfg.MapFilename
	}
	return filepath.Join(s.cfg.MapDir, security.MapFileName(name))
}

// SaveMap writes the accepted points and tracked planes to the named map
// and returns the snapshot and path written.
func (s *Session) SaveMap(name string) (*MapSnapshot, string, error) {
	if s.c.Store == nil {
		return nil, "", fmt.Errorf("cannot save map: %w: map store", ErrMissingCollaborator)
	}
	if s.c.Planes == nil {
		return nil, "", fmt.Errorf("cannot save map: %w: plane registry", ErrMissingCollaborator)
	}

	path := s.MapPath(name)
	snap, err := s.c.Store.Save(s.agg, s.c.Planes, path)
	if err != nil {
		return nil, "", fmt.Errorf("cannot save map: %w", err)
	}

	if s.c.Catalog != nil {
		if err := s.c.Catalog.RecordSnapshot(s.id, filepath.Base(path), path, snap); err != nil {
			monitoring.Logf("[Session] failed to record snapshot %s in catalog: %v", path, err)
		}
	}
	return snap, path, nil
}

// LoadMap reads the named map and replays it, replacing any previously
// replayed map. If the file is missing or malformed the current
// visualisation is left as it was.
func (s *Session) LoadMap(name string) (*MapSnapshot, error) {
	if s.c.Store == nil {
		return nil, fmt.Errorf("cannot load map: %w: map store", ErrMissingCollaborator)
	}
	if s.c.Visualizer == nil {
		return nil, fmt.Errorf("cannot load map: %w: visualiser", ErrMissingCollaborator)
	}

	snap, err := s.c.Store.Load(s.MapPath(name))
	if err != nil {
		return nil, err
	}

	s.replayer.ClearVisualization()
	s.lastLoaded = nil
	if err := s.replayer.Replay(snap); err != nil {
		return nil, err
	}
	s.lastLoaded = snap
	return snap, nil
}

// LastLoaded returns the snapshot currently replayed, or nil.
func (s *Session) LastLoaded() *MapSnapshot {
	return s.lastLoaded
}

// ReplayedCount returns the number of live replayed objects.
func (s *Session) ReplayedCount() int {
	return s.replayer.Count()
}

// ClearVisualization destroys both the replayed map and every live point
// marker, emptying the point store. It is idempotent.
func (s *Session) ClearVisualization() {
	s.replayer.ClearVisualization()
	s.agg.ClearAll()
	s.lastLoaded = nil
}

// Close tears the session down: it stops mapping and clears everything.
func (s *Session) Close() {
	s.Stop()
	s.ClearVisualization()
}

// Status is a point-in-time summary of the session.
type Status struct {
	SessionID      string          `json:"session_id"`
	State          string          `json:"state"`
	AcceptedPoints int             `json:"accepted_points"`
	MaxPoints      int             `json:"max_points"`
	Sources        int             `json:"sources"`
	Planes         int             `json:"planes"`
	ReplayedObjs   int             `json:"replayed_objects"`
	Stats          AggregatorStats `json:"stats"`
}

// Status summarises the session.
func (s *Session) Status() Status {
	st := Status{
		SessionID:      s.id,
		State:          s.state.String(),
		AcceptedPoints: s.agg.AcceptedCount(),
		MaxPoints:      s.cfg.Aggregator.MaxPoints,
		Sources:        len(s.agg.Sources()),
		ReplayedObjs:   s.replayer.Count(),
		Stats:          s.agg.Stats(),
	}
	if s.c.Planes != nil {
		st.Planes = s.c.Planes.Count()
	}
	return st
}
