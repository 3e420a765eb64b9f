package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/showfolio/crosspost/internal/models"
)

// PublishLogRepository is insert-only apart from reads; rows are never
// updated or deleted once written.
type PublishLogRepository interface {
	Create(ctx context.Context, log *models.PublishLog) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishLog, error)
	NextAttempt(ctx context.Context, postID int64) (int, error)
}

type publishLogRepository struct {
	db *sql.DB
}

func NewPublishLogRepository(db *sql.DB) PublishLogRepository {
	return &publishLogRepository{db: db}
}

func (r *publishLogRepository) Create(ctx context.Context, l *models.PublishLog) (int64, error) {
	query := `
		INSERT INTO publish_logs (post_id, platform, attempt, status, platform_response, platform_post_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var response any
	if len(l.PlatformResponse) > 0 {
		response = []byte(l.PlatformResponse)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		l.PostID,
		l.Platform,
		l.Attempt,
		l.Status,
		response,
		l.PlatformPostID,
		l.ErrorMessage,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishLogRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishLog, error) {
	query := `
		SELECT id, post_id, platform, attempt, status, platform_response, platform_post_id, error_message, created_at
		FROM publish_logs
		WHERE post_id = $1
		ORDER BY attempt, platform
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.PublishLog
	for rows.Next() {
		var l models.PublishLog
		var response []byte
		err := rows.Scan(&l.ID, &l.PostID, &l.Platform, &l.Attempt, &l.Status,
			&response, &l.PlatformPostID, &l.ErrorMessage, &l.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		l.PlatformResponse = response
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// NextAttempt returns MAX(attempt)+1 over existing rows, so a re-run appends
// new rows instead of colliding with an earlier run's numbering.
func (r *publishLogRepository) NextAttempt(ctx context.Context, postID int64) (int, error) {
	query := `SELECT COALESCE(MAX(attempt), 0) + 1 FROM publish_logs WHERE post_id = $1`

	var attempt int
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&attempt)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return attempt, nil
}
