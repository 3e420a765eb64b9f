package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/showfolio/crosspost/internal/models"
)

// ProjectRepository is read-only; the portfolio builder owns the table.
type ProjectRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	CheckByUserID(ctx context.Context, projectID, userID int64) (bool, error)
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	query := `SELECT id, user_id, name, description, live_url, created_at FROM projects WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var p models.Project
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.LiveURL, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

func (r *projectRepository) CheckByUserID(ctx context.Context, projectID, userID int64) (bool, error) {
	query := `SELECT 1 FROM projects WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, projectID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
