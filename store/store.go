package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/openseg/go-segtrack/tracker"
)

// TrackDB wraps the sqlite handle holding tracking session data
type TrackDB struct {
	*sql.DB
}

// schema.sql contains the SQL statements for creating the tracking database
// schema. It defines tables for sessions, per session object summaries and
// per frame merge reports.
//
//go:embed schema.sql
var schemaSQL string

// NewTrackDB opens the sqlite database at path and creates the schema when
// missing
func NewTrackDB(path string) (*TrackDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(schemaSQL)
	if err != nil {
		return nil, err
	}

	log.Println("initialized tracking database schema")

	return &TrackDB{db}, nil
}

// SessionRecord represents one tracking run
type SessionRecord struct {
	SessionID  string
	StartedAt  float64
	EndedAt    *float64
	Width      int
	Height     int
	MergeMode  string
	FrameCount int
	Notes      string
}

// ObjectRecord summarises one tracked object within a session
type ObjectRecord struct {
	SessionID string
	ObjectID  int32
	Category  string
	// Class is the detector class index, -1 when unknown
	Class       int
	Confidence  float32
	FirstFrame  int
	LastFrame   int
	MergedCount int
}

// FrameRecord holds the merge report for one frame of a session
type FrameRecord struct {
	SessionID string
	Frame     int
	tracker.Report
}

// BeginSession creates a new session record and returns its identifier
func BeginSession(db *sql.DB, width, height int, mode string,
	notes string) (string, error) {

	query := `
		INSERT INTO track_sessions (session_id, width, height, merge_mode, notes)
		VALUES (?, ?, ?, ?, ?)
	`

	sessionID := uuid.NewString()

	_, err := db.Exec(query, sessionID, width, height, mode, nullString(notes))
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}

	return sessionID, nil
}

// EndSession closes a session record and stores the final frame count
func EndSession(db *sql.DB, sessionID string, frameCount int) error {
	query := `
		UPDATE track_sessions
		SET ended_at = UNIXEPOCH('subsec'), frame_count = ?
		WHERE session_id = ?
	`

	_, err := db.Exec(query, frameCount, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	return nil
}

// UpsertObject writes an object summary row.
// The same row is rewritten every frame as the object absorbs detections,
// ON CONFLICT DO UPDATE keeps the rowid stable instead of delete and
// reinsert churn from INSERT OR REPLACE.
func UpsertObject(db *sql.DB, rec *ObjectRecord) error {
	query := `
		INSERT INTO track_objects (
			session_id, object_id, category, class, confidence,
			first_frame, last_frame, merged_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, object_id) DO UPDATE SET
			category = excluded.category,
			class = excluded.class,
			confidence = excluded.confidence,
			last_frame = excluded.last_frame,
			merged_count = excluded.merged_count
	`

	_, err := db.Exec(query,
		rec.SessionID,
		rec.ObjectID,
		rec.Category,
		nullClass(rec.Class),
		rec.Confidence,
		rec.FirstFrame,
		rec.LastFrame,
		rec.MergedCount,
	)
	if err != nil {
		return fmt.Errorf("upsert object: %w", err)
	}

	return nil
}

// InsertFrame writes the merge report for one frame
func InsertFrame(db *sql.DB, rec *FrameRecord) error {
	query := `
		INSERT OR REPLACE INTO track_frames (
			session_id, frame, matched, created, carried_over,
			engulfed, discarded, limit_hit, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		rec.SessionID,
		rec.Frame,
		rec.Matched,
		rec.Created,
		rec.CarriedOver,
		rec.Engulfed,
		rec.Discarded,
		rec.LimitHit,
		rec.Active,
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}

	return nil
}

// GetSession retrieves a single session record
func GetSession(db *sql.DB, sessionID string) (*SessionRecord, error) {
	query := `
		SELECT session_id, started_at, ended_at, width, height,
			merge_mode, frame_count, notes
		FROM track_sessions
		WHERE session_id = ?
	`

	rec := &SessionRecord{}
	var endedAt sql.NullFloat64
	var notes sql.NullString

	err := db.QueryRow(query, sessionID).Scan(
		&rec.SessionID,
		&rec.StartedAt,
		&endedAt,
		&rec.Width,
		&rec.Height,
		&rec.MergeMode,
		&rec.FrameCount,
		&notes,
	)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if endedAt.Valid {
		rec.EndedAt = &endedAt.Float64
	}
	if notes.Valid {
		rec.Notes = notes.String
	}

	return rec, nil
}

// GetSessions retrieves the most recent session records
func GetSessions(db *sql.DB, limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT session_id, started_at, ended_at, width, height,
			merge_mode, frame_count, notes
		FROM track_sessions
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionRecord
	for rows.Next() {
		rec := &SessionRecord{}
		var endedAt sql.NullFloat64
		var notes sql.NullString

		err := rows.Scan(
			&rec.SessionID,
			&rec.StartedAt,
			&endedAt,
			&rec.Width,
			&rec.Height,
			&rec.MergeMode,
			&rec.FrameCount,
			&notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		if endedAt.Valid {
			rec.EndedAt = &endedAt.Float64
		}
		if notes.Valid {
			rec.Notes = notes.String
		}

		sessions = append(sessions, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetObjects retrieves the object summaries for a session ordered by
// object identity
func GetObjects(db *sql.DB, sessionID string) ([]*ObjectRecord, error) {
	query := `
		SELECT session_id, object_id, category, class, confidence,
			first_frame, last_frame, merged_count
		FROM track_objects
		WHERE session_id = ?
		ORDER BY object_id ASC
	`

	rows, err := db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	var objects []*ObjectRecord
	for rows.Next() {
		rec := &ObjectRecord{}
		var class sql.NullInt64

		err := rows.Scan(
			&rec.SessionID,
			&rec.ObjectID,
			&rec.Category,
			&class,
			&rec.Confidence,
			&rec.FirstFrame,
			&rec.LastFrame,
			&rec.MergedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}

		rec.Class = -1
		if class.Valid {
			rec.Class = int(class.Int64)
		}

		objects = append(objects, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}

	return objects, nil
}

// GetFramesInRange returns frame reports for a session within a frame
// window (inclusive)
func GetFramesInRange(db *sql.DB, sessionID string, startFrame, endFrame,
	limit int) ([]*FrameRecord, error) {

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT session_id, frame, matched, created, carried_over,
			engulfed, discarded, limit_hit, active
		FROM track_frames
		WHERE session_id = ? AND frame BETWEEN ? AND ?
		ORDER BY frame ASC
		LIMIT ?
	`

	rows, err := db.Query(query, sessionID, startFrame, endFrame, limit)
	if err != nil {
		return nil, fmt.Errorf("query frames in range: %w", err)
	}
	defer rows.Close()

	var frames []*FrameRecord
	for rows.Next() {
		rec := &FrameRecord{}

		err := rows.Scan(
			&rec.SessionID,
			&rec.Frame,
			&rec.Matched,
			&rec.Created,
			&rec.CarriedOver,
			&rec.Engulfed,
			&rec.Discarded,
			&rec.LimitHit,
			&rec.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}

		frames = append(frames, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	return frames, nil
}

// Helper functions for nullable values

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullClass(c int) interface{} {
	if c < 0 {
		return nil
	}
	return c
}
