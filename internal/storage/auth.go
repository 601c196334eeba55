package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/store"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Repository) CreateAccount(ctx context.Context, email, password, displayName string) (core.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return core.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	id := core.Identity{ID: uuid.NewString(), Email: normalizeEmail(email), DisplayName: strings.TrimSpace(displayName)}
	_, err = r.exec(ctx, r.db,
		`INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.ID, id.Email, id.DisplayName, string(hash), formatTime(r.now()))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Identity{}, store.ErrEmailTaken
		}
		return core.Identity{}, fmt.Errorf("insert user: %w", err)
	}
	r.logger.InfoContext(ctx, "Account created", log.FieldUserID, id.ID)
	return id, nil
}

func (r *Repository) userByEmail(ctx context.Context, q querier, email string) (core.Identity, string, error) {
	var id core.Identity
	var hash string
	err := r.queryRow(ctx, q,
		`SELECT id, email, display_name, password_hash FROM users WHERE email = ?`, normalizeEmail(email)).
		Scan(&id.ID, &id.Email, &id.DisplayName, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Identity{}, "", store.ErrNotFound
	}
	if err != nil {
		return core.Identity{}, "", fmt.Errorf("select user: %w", err)
	}
	return id, hash, nil
}

func (r *Repository) Authenticate(ctx context.Context, email, password string) (store.Session, error) {
	id, hash, err := r.userByEmail(ctx, r.db, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, store.ErrInvalidCredentials
	}
	if err != nil {
		return store.Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return store.Session{}, store.ErrInvalidCredentials
	}

	sess := store.Session{
		Token:     uuid.NewString(),
		Identity:  id,
		ExpiresAt: r.now().Add(r.sessionTTL).UTC(),
	}
	if _, err := r.exec(ctx, r.db,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.Token, id.ID, formatTime(sess.ExpiresAt)); err != nil {
		return store.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (r *Repository) EndSession(ctx context.Context, token string) error {
	if _, err := r.exec(ctx, r.db, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repository) SessionIdentity(ctx context.Context, token string) (core.Identity, error) {
	return r.sessionIdentity(ctx, r.db, token)
}

func (r *Repository) sessionIdentity(ctx context.Context, q querier, token string) (core.Identity, error) {
	var id core.Identity
	var expires dbTime
	err := r.queryRow(ctx, q, `
		SELECT u.id, u.email, u.display_name, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, token).
		Scan(&id.ID, &id.Email, &id.DisplayName, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Identity{}, store.ErrSessionExpired
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("select session: %w", err)
	}
	if !r.now().Before(expires.Time) {
		return core.Identity{}, store.ErrSessionExpired
	}
	return id, nil
}

func (r *Repository) SendPasswordReset(ctx context.Context, email string) (string, error) {
	id, _, err := r.userByEmail(ctx, r.db, email)
	if errors.Is(err, store.ErrNotFound) {
		// Unknown addresses are not revealed to the caller.
		return "", nil
	}
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if _, err := r.exec(ctx, r.db,
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, id.ID, formatTime(r.now().Add(store.ResetTokenTTL))); err != nil {
		return "", fmt.Errorf("insert reset token: %w", err)
	}
	return token, nil
}

// IssueResetToken is SendPasswordReset for tooling.
func (r *Repository) IssueResetToken(ctx context.Context, email string) (string, error) {
	return r.SendPasswordReset(ctx, email)
}

func (r *Repository) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var userID string
		var expires dbTime
		err := r.queryRow(ctx, tx,
			`SELECT user_id, expires_at FROM password_resets WHERE token = ?`, resetToken).
			Scan(&userID, &expires)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("select reset token: %w", err)
		}
		if !r.now().Before(expires.Time) {
			return store.ErrInvalidToken
		}
		if _, err := r.exec(ctx, tx, `DELETE FROM password_resets WHERE token = ?`, resetToken); err != nil {
			return fmt.Errorf("delete reset token: %w", err)
		}
		if _, err := r.exec(ctx, tx, `UPDATE users SET password_hash = ? WHERE id = ?`, string(hash), userID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
}

func (r *Repository) ChangeEmail(ctx context.Context, token, newEmail string) (core.Identity, error) {
	var out core.Identity
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		id, err := r.sessionIdentity(ctx, tx, token)
		if err != nil {
			return err
		}
		id.Email = normalizeEmail(newEmail)
		if _, err := r.exec(ctx, tx, `UPDATE users SET email = ? WHERE id = ?`, id.Email, id.ID); err != nil {
			if isUniqueViolation(err) {
				return store.ErrEmailTaken
			}
			return fmt.Errorf("update email: %w", err)
		}
		out = id
		return nil
	})
	return out, err
}

func (r *Repository) ChangePassword(ctx context.Context, token, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		id, err := r.sessionIdentity(ctx, tx, token)
		if err != nil {
			return err
		}
		if _, err := r.exec(ctx, tx, `UPDATE users SET password_hash = ? WHERE id = ?`, string(hash), id.ID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
}
