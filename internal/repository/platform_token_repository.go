package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/showfolio/crosspost/internal/models"
)

type PlatformTokenRepository interface {
	Upsert(ctx context.Context, token *models.PlatformToken) (int64, error)
	Get(ctx context.Context, userID int64, platform models.Platform) (*models.PlatformToken, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformToken, error)
	Deactivate(ctx context.Context, id int64) error
	DeactivateExpired(ctx context.Context, before time.Time) (int64, error)
	Remove(ctx context.Context, id, userID int64) error
}

type platformTokenRepository struct {
	db *sql.DB
}

func NewPlatformTokenRepository(db *sql.DB) PlatformTokenRepository {
	return &platformTokenRepository{db: db}
}

const tokenColumns = `id, user_id, platform, account_id, account_name, account_username, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at`

func (r *platformTokenRepository) Upsert(ctx context.Context, t *models.PlatformToken) (int64, error) {
	query := `
		INSERT INTO platform_tokens (user_id, platform, account_id, account_name, account_username, access_token, refresh_token, token_expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			account_username = EXCLUDED.account_username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		t.UserID,
		t.Platform,
		t.AccountID,
		t.AccountName,
		t.AccountUsername,
		t.AccessToken,
		t.RefreshToken,
		t.TokenExpiresAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *platformTokenRepository) Get(ctx context.Context, userID int64, platform models.Platform) (*models.PlatformToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM platform_tokens WHERE user_id = $1 AND platform = $2`
	row := r.db.QueryRowContext(ctx, query, userID, platform)

	var t models.PlatformToken
	err := row.Scan(&t.ID, &t.UserID, &t.Platform, &t.AccountID, &t.AccountName,
		&t.AccountUsername, &t.AccessToken, &t.RefreshToken, &t.TokenExpiresAt,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &t, nil
}

func (r *platformTokenRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM platform_tokens WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tokens []*models.PlatformToken
	for rows.Next() {
		var t models.PlatformToken
		err := rows.Scan(&t.ID, &t.UserID, &t.Platform, &t.AccountID, &t.AccountName,
			&t.AccountUsername, &t.AccessToken, &t.RefreshToken, &t.TokenExpiresAt,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func (r *platformTokenRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE platform_tokens SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformTokenRepository) DeactivateExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE platform_tokens SET is_active = FALSE, updated_at = NOW() WHERE is_active = TRUE AND token_expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

func (r *platformTokenRepository) Remove(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM platform_tokens WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
