package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/calebforth/sessiongate/internal"
)

// PostgresStore implements Store on a pgx connection pool.
//
// Expected schema:
//
//	CREATE TABLE users (
//	    id           TEXT PRIMARY KEY,
//	    external_id  TEXT NOT NULL UNIQUE,
//	    email        TEXT NOT NULL UNIQUE,
//	    display_name TEXT NOT NULL DEFAULT '',
//	    avatar_url   TEXT NOT NULL DEFAULT '',
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL,
//	    deleted_at   TIMESTAMPTZ
//	);
//
//	CREATE TABLE sessions (
//	    id           TEXT PRIMARY KEY,
//	    user_id      TEXT NOT NULL REFERENCES users(id),
//	    refresh_hash BYTEA NOT NULL DEFAULT ''::bytea,
//	    is_valid     BOOLEAN NOT NULL DEFAULT TRUE,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL,
//	    expires_at   TIMESTAMPTZ NOT NULL,
//	    deleted_at   TIMESTAMPTZ
//	);
//	CREATE INDEX sessions_user_active ON sessions (user_id) WHERE is_valid;
//
// Rotation runs inside a transaction with SELECT ... FOR UPDATE so two
// concurrent refreshes serialize on the session row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("nil pgx pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const userColumns = "id, external_id, email, display_name, avatar_url, created_at, updated_at, deleted_at"

const sessionColumns = "id, user_id, refresh_hash, is_valid, created_at, updated_at, expires_at, deleted_at"

// pgUniqueViolation is the SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

func (p *PostgresStore) CreateUser(ctx context.Context, input NewUser) (*User, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, external_id, email, display_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+userColumns,
		id, input.ExternalID, input.Email, input.DisplayName, input.AvatarURL, now,
	)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateUser
		}
		return nil, wrapInfra(err)
	}
	return user, nil
}

func (p *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	return p.userWhere(ctx, "id = $1", id)
}

func (p *PostgresStore) UserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return p.userWhere(ctx, "external_id = $1", externalID)
}

func (p *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return p.userWhere(ctx, "email = $1", email)
}

func (p *PostgresStore) userWhere(ctx context.Context, where string, arg any) (*User, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" AND deleted_at IS NULL", arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrapInfra(err)
	}
	return user, nil
}

func (p *PostgresStore) UpdateUserProfile(ctx context.Context, userID, displayName, avatarURL string) (*User, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE users
		SET display_name = $2, avatar_url = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+userColumns,
		userID, displayName, avatarURL, time.Now().UTC(),
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrapInfra(err)
	}
	return user, nil
}

func (p *PostgresStore) CreateSession(ctx context.Context, userID string, now, expiresAt time.Time) (*Session, error) {
	id := ulid.Make().String()

	row := p.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $3, $4)
		RETURNING `+sessionColumns,
		id, userID, now, expiresAt,
	)

	session, err := scanSession(row)
	if err != nil {
		return nil, wrapInfra(err)
	}
	return session, nil
}

func (p *PostgresStore) SessionByID(ctx context.Context, sessionID string) (*Session, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = $1", sessionID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, wrapInfra(err)
	}
	return session, nil
}

func (p *PostgresStore) SetRefreshHash(ctx context.Context, sessionID string, hash [32]byte, now time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE sessions SET refresh_hash = $2, updated_at = $3 WHERE id = $1`,
		sessionID, hash[:], now)
	if err != nil {
		return wrapInfra(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (p *PostgresStore) RotateRefreshHash(ctx context.Context, sessionID string, provided, next [32]byte, now time.Time) (*Session, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, wrapInfra(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = $1 FOR UPDATE", sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, wrapInfra(err)
	}

	if !session.IsValid || session.DeletedAt != nil {
		return nil, ErrSessionInvalid
	}
	if !now.Before(session.ExpiresAt) {
		if _, err := tx.Exec(ctx,
			"UPDATE sessions SET is_valid = FALSE, updated_at = $2 WHERE id = $1",
			sessionID, now); err != nil {
			return nil, wrapInfra(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, wrapInfra(err)
		}
		return nil, ErrSessionExpired
	}
	if !internal.HashEqual(session.RefreshHash, provided) {
		return nil, ErrHashMismatch
	}

	if _, err := tx.Exec(ctx,
		"UPDATE sessions SET refresh_hash = $2, updated_at = $3 WHERE id = $1",
		sessionID, next[:], now); err != nil {
		return nil, wrapInfra(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapInfra(err)
	}

	session.RefreshHash = next
	session.UpdatedAt = now
	return session, nil
}

func (p *PostgresStore) InvalidateSession(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE sessions SET is_valid = FALSE, updated_at = $2
		WHERE id = $1 AND is_valid`,
		sessionID, now)
	if err != nil {
		return false, wrapInfra(err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish an unknown session from an already-invalid one.
		var exists bool
		if err := p.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)", sessionID).Scan(&exists); err != nil {
			return false, wrapInfra(err)
		}
		if !exists {
			return false, ErrSessionNotFound
		}
		return false, nil
	}
	return true, nil
}

func (p *PostgresStore) InvalidateSessions(ctx context.Context, sessionIDs []string, now time.Time) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE sessions SET is_valid = FALSE, updated_at = $2
		WHERE id = ANY($1) AND is_valid`,
		sessionIDs, now)
	if err != nil {
		return 0, wrapInfra(err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) ActiveSessionsForUser(ctx context.Context, userID string, now time.Time) ([]*Session, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND is_valid AND deleted_at IS NULL AND expires_at > $2
		ORDER BY created_at ASC, id ASC`,
		userID, now)
	if err != nil {
		return nil, wrapInfra(err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, wrapInfra(err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapInfra(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.DisplayName,
		&user.AvatarURL, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var hash []byte
	err := row.Scan(
		&session.ID, &session.UserID, &hash, &session.IsValid,
		&session.CreatedAt, &session.UpdatedAt, &session.ExpiresAt, &session.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(session.RefreshHash[:], hash)
	return &session, nil
}

func wrapInfra(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
