package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/bitshala/guildgate/internal/gate/domain"
)

type tokensRepo struct {
	db querier
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, value, role_key, email, name, expires_at, used, email_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		t.ID, t.Value, t.RoleKey,
		mapStringNull(t.Email), mapStringNull(t.Name),
		t.ExpiresAt.UTC(), now, now,
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByValue(ctx context.Context, value string) (domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, value, role_key, email, name, expires_at, used, email_sent, created_at, updated_at
		FROM tokens
		WHERE value = ?`,
		value,
	)
	return scanToken(row)
}

// RedeemToken flips used from 0 to 1 and returns the role key in one
// statement. The conditional UPDATE is the serialization point: sqlite runs
// it atomically, so concurrent redeemers of the same value see exactly one
// row affected in total. Losers fall through to sql.ErrNoRows and are
// indistinguishable from a token that never existed.
//
// Expiry is deliberately not checked here; it is advisory and enforced only
// by DeleteExpiredTokens.
func (r *tokensRepo) RedeemToken(ctx context.Context, value string) (string, error) {
	var roleKey string
	err := r.db.QueryRowContext(ctx, `
		UPDATE tokens
		SET used = 1, updated_at = ?
		WHERE value = ? AND used = 0
		RETURNING role_key`,
		time.Now().UTC(), value,
	).Scan(&roleKey)
	if err != nil {
		return "", mapNotFound(err)
	}
	return roleKey, nil
}

func (r *tokensRepo) MarkEmailSent(ctx context.Context, value string, sent bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tokens
		SET email_sent = ?, updated_at = ?
		WHERE value = ?`,
		sent, time.Now().UTC(), value,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE expires_at < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *tokensRepo) ListRecentTokens(ctx context.Context, limit int) ([]domain.Token, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, value, role_key, email, name, expires_at, used, email_sent, created_at, updated_at
		FROM tokens
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (domain.Token, error) {
	var (
		t           domain.Token
		email, name sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Value, &t.RoleKey,
		&email, &name,
		&t.ExpiresAt, &t.Used, &t.EmailSent,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.Email = mapNullString(email)
	t.Name = mapNullString(name)
	return t, nil
}
