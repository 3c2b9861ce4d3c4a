package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/veramoney/chatmesh/core"
)

// sessionEvent is the persisted row for one conversation event. Events are
// append-only; a session is the ordered set of its rows.
type sessionEvent struct {
	bun.BaseModel `bun:"table:session_events"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SessionID string    `bun:"session_id,notnull"`
	Event     []byte    `bun:"event,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresStore is a durable SessionStore backed by Postgres via bun.
// Initialize must succeed before any other method is used; it is idempotent
// and performs connectivity checks plus schema creation.
type PostgresStore struct {
	db *bun.DB

	mu    sync.Mutex
	ready bool
}

// NewPostgresStore connects to the given DSN. The connection is verified in
// Initialize, not here.
func NewPostgresStore(dsn string) *PostgresStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}
}

// NewPostgresStoreFromDB wraps an existing bun handle. Used by tests.
func NewPostgresStoreFromDB(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Initialize implements core.SessionStore. It pings the database and creates
// the schema if missing. Safe to call more than once.
func (s *PostgresStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("session store: pinging postgres: %w", err)
	}

	if _, err := s.db.NewCreateTable().
		Model((*sessionEvent)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("session store: creating schema: %w", err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*sessionEvent)(nil)).
		Index("session_events_session_id_idx").
		Column("session_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("session store: creating index: %w", err)
	}

	s.ready = true

	return nil
}

// Get implements core.SessionStore. Missing sessions are returned empty, not
// created: the first AppendEvent materializes them.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*core.Session, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	var rows []sessionEvent
	if err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("session store: loading session %s: %w", sessionID, err)
	}

	sess := core.NewSession(sessionID)
	for _, row := range rows {
		ev, err := decodeEvent(row.Event)
		if err != nil {
			return nil, fmt.Errorf("session store: decoding event %d: %w", row.ID, err)
		}
		sess.AddEvent(ev)
	}

	return sess, nil
}

// AppendEvent implements core.SessionStore.
func (s *PostgresStore) AppendEvent(ctx context.Context, sessionID string, ev core.Event) error {
	if err := s.checkReady(); err != nil {
		return err
	}

	payload, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("session store: encoding event: %w", err)
	}

	row := &sessionEvent{
		SessionID: sessionID,
		Event:     payload,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("session store: appending event for %s: %w", sessionID, err)
	}

	return nil
}

// IsOpening implements core.SessionStore.
func (s *PostgresStore) IsOpening(ctx context.Context, sessionID string) (bool, error) {
	if err := s.checkReady(); err != nil {
		return false, err
	}

	count, err := s.db.NewSelect().
		Model((*sessionEvent)(nil)).
		Where("session_id = ?", sessionID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("session store: counting events for %s: %w", sessionID, err)
	}

	return count == 0, nil
}

// Close implements core.SessionStore. It releases the connection pool and
// clears readiness, so any later use fails with core.ErrStoreNotReady until
// Initialize succeeds again.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	return s.db.Close()
}

func (s *PostgresStore) checkReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return core.ErrStoreNotReady
	}
	return nil
}
