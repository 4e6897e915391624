package mapdb

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/monitoring"
)

// ErrSnapshotNotFound is returned by GetSnapshot for an unknown id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRecord is one catalog row without its map payload.
type SnapshotRecord struct {
	SnapshotID string    `json:"snapshot_id"`
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	PointCount int       `json:"point_count"`
	PlaneCount int       `json:"plane_count"`
	TakenAt    time.Time `json:"taken_at"`
}

// RecordSnapshot stores snap under a new snapshot id. It satisfies
// armap.SnapshotCatalog.
func (db *DB) RecordSnapshot(sessionID, name, path string, snap *armap.MapSnapshot) error {
	_, err := db.InsertSnapshot(sessionID, name, path, snap)
	return err
}

// InsertSnapshot is RecordSnapshot returning the stored row.
func (db *DB) InsertSnapshot(sessionID, name, path string, snap *armap.MapSnapshot) (*SnapshotRecord, error) {
	if snap == nil {
		return nil, fmt.Errorf("record snapshot %s: nil snapshot", name)
	}
	blob, err := compressSnapshot(snap)
	if err != nil {
		return nil, err
	}

	rec := &SnapshotRecord{
		SnapshotID: uuid.NewString(),
		SessionID:  sessionID,
		Name:       name,
		Path:       path,
		PointCount: len(snap.Points),
		PlaneCount: snap.PlaneCount(),
		TakenAt:    db.clock.Now().UTC(),
	}
	_, err = db.Exec(`
		INSERT INTO map_snapshots (
			snapshot_id, session_id, name, path, point_count, plane_count, taken_unix_nanos, map_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SnapshotID, rec.SessionID, rec.Name, rec.Path,
		rec.PointCount, rec.PlaneCount, rec.TakenAt.UnixNano(), blob,
	)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot %s: %w", name, err)
	}

	monitoring.Logf("[MapDB] snapshot recorded: id=%s name=%s points=%d planes=%d bytes=%d",
		rec.SnapshotID, name, rec.PointCount, rec.PlaneCount, len(blob))
	return rec, nil
}

// ListRecentSnapshots returns up to limit rows, newest first. A
// non-positive limit returns every row.
func (db *DB) ListRecentSnapshots(limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT snapshot_id, session_id, name, path, point_count, plane_count, taken_unix_nanos
		FROM map_snapshots
		ORDER BY taken_unix_nanos DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := []SnapshotRecord{}
	for rows.Next() {
		var rec SnapshotRecord
		var taken int64
		if err := rows.Scan(&rec.SnapshotID, &rec.SessionID, &rec.Name, &rec.Path,
			&rec.PointCount, &rec.PlaneCount, &taken); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.TakenAt = time.Unix(0, taken).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSnapshot returns the row and decoded map for id.
func (db *DB) GetSnapshot(id string) (*SnapshotRecord, *armap.MapSnapshot, error) {
	var rec SnapshotRecord
	var taken int64
	var blob []byte
	err := db.QueryRow(`
		SELECT snapshot_id, session_id, name, path, point_count, plane_count, taken_unix_nanos, map_blob
		FROM map_snapshots WHERE snapshot_id = ?`, id,
	).Scan(&rec.SnapshotID, &rec.SessionID, &rec.Name, &rec.Path,
		&rec.PointCount, &rec.PlaneCount, &taken, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	rec.TakenAt = time.Unix(0, taken).UTC()

	snap, err := decompressSnapshot(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return &rec, snap, nil
}

// DeleteSnapshot removes id from the catalog. The map file is untouched.
func (db *DB) DeleteSnapshot(id string) error {
	res, err := db.Exec(`DELETE FROM map_snapshots WHERE snapshot_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return nil
}

func compressSnapshot(snap *armap.MapSnapshot) ([]byte, error) {
	data, err := armap.EncodeSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressSnapshot(blob []byte) (*armap.MapSnapshot, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return armap.DecodeSnapshot(data)
}

func (db *DB) handleRecentSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := db.ListRecentSnapshots(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recs); err != nil {
		monitoring.Logf("[MapDB] failed to encode snapshot list: %v", err)
	}
}
