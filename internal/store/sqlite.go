package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"recreate/internal/geom"
	"recreate/internal/recreate"
)

// NodeIndex finds the graph node closest to a centroid, -1 if none.
type NodeIndex interface {
	Nearest(p geom.Vec2) int
}

// Session describes one stored replay.
type Session struct {
	ID        string
	Team      string
	Ticks     int
	Config    any
	CreatedAt time.Time
}

// StateRow is one stored platoon sample.
type StateRow struct {
	Tick        int
	Platoon     string
	VehicleType string
	Primitive   string
	Centroid    geom.Vec2
	Visibility  bool
	Engage      bool
	HitProb     float64
	Node        *int
}

// SQLiteStore writes replays to a SQLite database.
type SQLiteStore struct {
	mu    sync.Mutex
	db    *sql.DB
	nodes NodeIndex
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string, nodes NodeIndex) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, nodes: nodes}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveReplay stores a session with its states and events in one
// transaction, replacing any earlier session with the same id.
func (s *SQLiteStore) SaveReplay(ctx context.Context, sess Session, res *recreate.ReplayResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfgJSON, err := json.Marshal(sess.Config)
	if err != nil {
		return fmt.Errorf("marshal session config: %w", err)
	}
	created := sess.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"replay_events", "complexity_states", "sessions"} {
		col := "session_id"
		if table == "sessions" {
			col = "id"
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+col+` = ?`, sess.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, team, ticks, config, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Team, len(res.States), string(cfgJSON), created.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO complexity_states (
		session_id, tick, platoon, vehicle_type, primitive,
		centroid_x, centroid_y, target_x, target_y, next_x, next_y,
		visibility, engage, hit_probability, node, vehicles
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare state insert: %w", err)
	}
	defer stmt.Close()

	for tick, cs := range res.States {
		for _, a := range cs.Platoons() {
			vehicles, err := json.Marshal(a.Vehicles)
			if err != nil {
				return fmt.Errorf("marshal vehicles: %w", err)
			}
			var node any
			if s.nodes != nil {
				if id := s.nodes.Nearest(a.CentroidPos); id >= 0 {
					node = id
				}
			}
			if _, err := stmt.ExecContext(ctx, sess.ID, tick, a.Key, string(a.VehicleType), string(a.Primitive),
				a.CentroidPos.X, a.CentroidPos.Y, a.TargetPos.X, a.TargetPos.Y, a.NextPos.X, a.NextPos.Y,
				boolToInt(a.Visibility), boolToInt(a.Engage), a.HitProbability, node, string(vehicles)); err != nil {
				return fmt.Errorf("insert state tick %d %s: %w", tick, a.Key, err)
			}
		}
	}

	for seq, ev := range res.Events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO replay_events (session_id, seq, tick, type, platoon, payload) VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, seq, ev.Tick, ev.Type, ev.Platoon, string(payload)); err != nil {
			return fmt.Errorf("insert event %d: %w", seq, err)
		}
	}
	return tx.Commit()
}

// GetSession returns a stored session header.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var (
		sess    Session
		cfg     sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, team, ticks, config, created_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Team, &sess.Ticks, &cfg, &created)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if cfg.Valid {
		sess.Config = json.RawMessage(cfg.String)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &sess, nil
}

// PlatoonTrack returns one platoon's stored samples in tick order.
func (s *SQLiteStore) PlatoonTrack(ctx context.Context, sessionID, platoon string) ([]StateRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, platoon, vehicle_type, primitive, centroid_x, centroid_y,
		       visibility, engage, hit_probability, node
		FROM complexity_states
		WHERE session_id = ? AND platoon = ?
		ORDER BY tick`, sessionID, platoon)
	if err != nil {
		return nil, fmt.Errorf("query track: %w", err)
	}
	defer rows.Close()

	var out []StateRow
	for rows.Next() {
		var (
			r           StateRow
			vis, engage int
			node        sql.NullInt64
		)
		if err := rows.Scan(&r.Tick, &r.Platoon, &r.VehicleType, &r.Primitive,
			&r.Centroid.X, &r.Centroid.Y, &vis, &engage, &r.HitProb, &node); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		r.Visibility, r.Engage = vis != 0, engage != 0
		if node.Valid {
			n := int(node.Int64)
			r.Node = &n
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns a session's stored events in recording order.
func (s *SQLiteStore) Events(ctx context.Context, sessionID string) ([]recreate.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, type, platoon, payload FROM replay_events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []recreate.Event
	for rows.Next() {
		var (
			ev      recreate.Event
			payload sql.NullString
		)
		if err := rows.Scan(&ev.Tick, &ev.Type, &ev.Platoon, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload.Valid && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode event payload: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
