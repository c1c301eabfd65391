package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/whatsapp-relay/internal/directory"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
)

var _ directory.Directory = (*Directory)(nil)

const sessionColumns = `id, user_id, room, language, name, created_at, updated_at`

// Directory implements directory.Directory backed by SQLite.
type Directory struct {
	db *DB
}

// NewDirectory creates a user directory using the given database.
func NewDirectory(db *DB) *Directory {
	return &Directory{db: db}
}

// GetOrCreate inserts the session if no row exists for userID and returns
// the stored row. The unique index on user_id makes concurrent creates
// collapse onto one row.
func (d *Directory) GetOrCreate(ctx context.Context, userID string, attrs domain.SessionAttrs) (*domain.Session, bool, error) {
	now := time.Now().UTC().Format(time.DateTime)
	res, err := d.db.sql.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		uuid.New().String(), userID, attrs.Room, attrs.Language, attrs.Name, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("creating session for %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("creating session for %s: %w", userID, err)
	}

	sess, err := d.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		d.db.log.Debug().Str("user", userID).Str("id", sess.ID).Msg("session created")
	}
	return sess, n > 0, nil
}

// Get returns the session for userID, or directory.ErrNotFound.
func (d *Directory) Get(ctx context.Context, userID string) (*domain.Session, error) {
	row := d.db.sql.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ?`, userID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session for %s: %w", userID, err)
	}
	return sess, nil
}

// List returns all sessions, most recently updated first.
func (d *Directory) List(ctx context.Context) ([]*domain.Session, error) {
	rows, err := d.db.sql.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC, user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Count returns the number of stored sessions.
func (d *Directory) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*domain.Session, error) {
	var sess domain.Session
	var createdAt, updatedAt string
	if err := s.Scan(
		&sess.ID, &sess.UserID, &sess.Room, &sess.Language, &sess.Name,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &sess, nil
}
