package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/showfolio/crosspost/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ClaimProcessing(ctx context.Context, id int64) (bool, error)
	SetResult(ctx context.Context, id int64, status string, result *models.PostResult) error
	MarkFailed(ctx context.Context, id int64, message string) error
	SetJobID(ctx context.Context, id int64, jobID string) error
	Cancel(ctx context.Context, id, userID int64) (bool, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const postColumns = `id, user_id, project_id, platforms, messages, media_urls, scheduled_at, status, result, job_id, created_at, updated_at`

func (r *scheduledPostRepository) Create(ctx context.Context, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, project_id, platforms, messages, media_urls, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	platforms := make([]string, len(post.Platforms))
	for i, p := range post.Platforms {
		platforms[i] = string(p)
	}

	messages, err := json.Marshal(post.Messages)
	if err != nil {
		return 0, err
	}
	mediaURLs, err := json.Marshal(post.MediaURLs)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		post.UserID,
		post.ProjectID,
		pq.Array(platforms),
		messages,
		mediaURLs,
		post.ScheduledAt,
		post.Status,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanPost(scan func(dest ...any) error) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var platforms []string
	var messages, mediaURLs []byte
	var result []byte
	var jobID sql.NullString

	err := scan(&post.ID, &post.UserID, &post.ProjectID, pq.Array(&platforms),
		&messages, &mediaURLs, &post.ScheduledAt, &post.Status, &result, &jobID,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = make([]models.Platform, len(platforms))
	for i, p := range platforms {
		post.Platforms[i] = models.Platform(p)
	}
	if err := json.Unmarshal(messages, &post.Messages); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(mediaURLs, &post.MediaURLs); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		post.Result = &models.PostResult{}
		if err := json.Unmarshal(result, post.Result); err != nil {
			return nil, err
		}
	}
	post.JobID = jobID.String

	return &post, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *scheduledPostRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *scheduledPostRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := `SELECT 1 FROM scheduled_posts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ClaimProcessing flips a post from scheduled to processing. The conditional
// WHERE makes the transition a single-writer lock: exactly one of any number
// of concurrent fires sees one affected row, the rest must not dispatch.
func (r *scheduledPostRepository) ClaimProcessing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusProcessing, time.Now(), id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *scheduledPostRepository) SetResult(ctx context.Context, id int64, status string, result *models.PostResult) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1, result = $2, updated_at = $3
		WHERE id = $4
	`

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, status, data, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) MarkFailed(ctx context.Context, id int64, message string) error {
	return r.SetResult(ctx, id, models.PostStatusFailed, &models.PostResult{
		Error:       message,
		ProcessedAt: time.Now(),
	})
}

func (r *scheduledPostRepository) SetJobID(ctx context.Context, id int64, jobID string) error {
	query := `UPDATE scheduled_posts SET job_id = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, jobID, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Cancel succeeds only while the post is still scheduled and owned by userID.
func (r *scheduledPostRepository) Cancel(ctx context.Context, id, userID int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, time.Now(), id, userID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
