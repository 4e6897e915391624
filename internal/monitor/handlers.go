package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/httputil"
	"github.com/banshee-data/armap/internal/mapdb"
	"github.com/banshee-data/armap/internal/monitoring"
	"github.com/banshee-data/armap/internal/security"
	"github.com/banshee-data/armap/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.Lock()
	st := s.session.Status()
	s.mu.Unlock()
	httputil.WriteJSONOK(w, st)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.runStateCommand(w, r, (*armap.Session).Start)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.runStateCommand(w, r, (*armap.Session).Stop)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.runStateCommand(w, r, (*armap.Session).ClearVisualization)
}

func (s *Server) runStateCommand(w http.ResponseWriter, r *http.Request, cmd func(*armap.Session)) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var st armap.Status
	_ = s.WithSession(func(sess *armap.Session) error {
		cmd(sess)
		st = sess.Status()
		return nil
	})
	httputil.WriteJSONOK(w, st)
}

type saveResponse struct {
	Path   string `json:"path"`
	Points int    `json:"points"`
	Planes int    `json:"planes"`
}

// handleSave writes the current map. Query params: name (optional).
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	name := r.URL.Query().Get("name")

	var resp saveResponse
	err := s.WithSession(func(sess *armap.Session) error {
		snap, path, err := sess.SaveMap(name)
		if err != nil {
			return err
		}
		resp = saveResponse{Path: path, Points: len(snap.Points), Planes: snap.PlaneCount()}
		return nil
	})
	if err != nil {
		writeMapError(w, err)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

// handleLoad replays a saved map. Query params: name (optional).
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	name := r.URL.Query().Get("name")

	var resp saveResponse
	err := s.WithSession(func(sess *armap.Session) error {
		snap, err := sess.LoadMap(name)
		if err != nil {
			return err
		}
		resp = saveResponse{Path: sess.MapPath(name), Points: len(snap.Points), Planes: snap.PlaneCount()}
		return nil
	})
	if err != nil {
		writeMapError(w, err)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

// handleEvents applies tracking events posted as an NDJSON body, one event
// per line. The whole body is decoded before any event is applied.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var events []armap.Event
	body := http.MaxBytesReader(w, r.Body, s.maxEventBytes)
	if err := armap.ReadEvents(body, func(ev armap.Event) error {
		events = append(events, ev)
		return nil
	}); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid event: %v", err))
		return
	}

	var st armap.Status
	err := s.WithSession(func(sess *armap.Session) error {
		for i, ev := range events {
			if err := sess.HandleEvent(ev); err != nil {
				return fmt.Errorf("event %d: %w", i+1, err)
			}
		}
		st = sess.Status()
		return nil
	})
	if err != nil {
		writeMapError(w, err)
		return
	}
	httputil.WriteJSONOK(w, st)
}

// handleMapFile downloads a saved map file. Query params: name (optional).
func (s *Server) handleMapFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := r.URL.Query().Get("name")

	var data []byte
	var filename string
	err := s.WithSession(func(sess *armap.Session) error {
		store := sess.Store()
		if store == nil {
			return fmt.Errorf("%w: map store", armap.ErrMissingCollaborator)
		}
		path := sess.MapPath(name)
		if err := security.ValidatePathWithinDirectory(path, sess.MapDir()); err != nil {
			return err
		}
		b, err := store.FileSystem().ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", armap.ErrNotFound, path)
		}
		if err != nil {
			return fmt.Errorf("read map %s: %w", path, err)
		}
		data, filename = b, filepath.Base(path)
		return nil
	})
	if err != nil {
		writeMapError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("[Monitor] failed to write map file: %v", err)
	}
}

// handleSnapshots lists catalog rows. Query params: limit (default 10, max 100).
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.catalog == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "snapshot catalog not configured")
		return
	}
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > 100 {
			httputil.BadRequest(w, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	recs, err := s.catalog.ListRecentSnapshots(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, recs)
}

type snapshotResponse struct {
	mapdb.SnapshotRecord
	Map *armap.MapSnapshot `json:"map"`
}

// handleSnapshot returns one catalog row with its map. Query params: id.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.catalog == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "snapshot catalog not configured")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return
	}
	rec, snap, err := s.catalog.GetSnapshot(id)
	if errors.Is(err, mapdb.ErrSnapshotNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, snapshotResponse{SnapshotRecord: *rec, Map: snap})
}

// writeMapError maps armap sentinels to HTTP status codes.
func writeMapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, armap.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, armap.ErrParse):
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, security.ErrPathEscape):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, armap.ErrMissingCollaborator):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}
