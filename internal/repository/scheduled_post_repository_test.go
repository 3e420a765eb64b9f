package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/showfolio/crosspost/internal/models"
)

func newPostRepo(t *testing.T) (ScheduledPostRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewScheduledPostRepository(db), mock
}

func TestScheduledPostCreate(t *testing.T) {
	repo, mock := newPostRepo(t)

	post := &models.ScheduledPost{
		UserID:    7,
		ProjectID: 3,
		Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedin},
		Messages: map[models.Platform]string{
			models.PlatformTwitter:  "tweet",
			models.PlatformLinkedin: "update",
		},
		ScheduledAt: time.Now().Add(time.Hour),
		Status:      models.PostStatusScheduled,
	}

	mock.ExpectQuery("INSERT INTO scheduled_posts").
		WithArgs(post.UserID, post.ProjectID, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), post.ScheduledAt, post.Status).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := repo.Create(context.Background(), post)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != 42 {
		t.Errorf("got id %d, want 42", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestScheduledPostGetByID(t *testing.T) {
	repo, mock := newPostRepo(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "project_id", "platforms", "messages", "media_urls",
		"scheduled_at", "status", "result", "job_id", "created_at", "updated_at",
	}).AddRow(
		42, 7, 3, []byte("{twitter,linkedin}"),
		[]byte(`{"twitter":"tweet","linkedin":"update"}`), []byte(`["https://cdn.example.com/a"]`),
		now, models.PostStatusScheduled, nil, "task-1", now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM scheduled_posts WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	post, err := repo.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if post == nil {
		t.Fatal("got nil post")
	}
	if len(post.Platforms) != 2 || post.Platforms[0] != models.PlatformTwitter {
		t.Errorf("got platforms %v", post.Platforms)
	}
	if post.Messages[models.PlatformLinkedin] != "update" {
		t.Errorf("got messages %v", post.Messages)
	}
	if post.JobID != "task-1" {
		t.Errorf("got job id %q", post.JobID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestScheduledPostGetByID_NotFound(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM scheduled_posts WHERE id").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if post != nil {
		t.Errorf("got %+v, want nil for a missing row", post)
	}
}

func TestClaimProcessing(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectExec("UPDATE scheduled_posts").
		WithArgs(models.PostStatusProcessing, sqlmock.AnyArg(), int64(42), models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimProcessing(context.Background(), 42)
	if err != nil {
		t.Fatalf("ClaimProcessing failed: %v", err)
	}
	if !claimed {
		t.Error("expected the claim to succeed for a scheduled post")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestClaimProcessing_AlreadyTaken(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectExec("UPDATE scheduled_posts").
		WithArgs(models.PostStatusProcessing, sqlmock.AnyArg(), int64(42), models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimProcessing(context.Background(), 42)
	if err != nil {
		t.Fatalf("ClaimProcessing failed: %v", err)
	}
	if claimed {
		t.Error("claim succeeded although no row matched")
	}
}

func TestCancel_OnlyWhileScheduled(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectExec("UPDATE scheduled_posts").
		WithArgs(models.PostStatusCancelled, sqlmock.AnyArg(), int64(42), int64(7), models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cancelled, err := repo.Cancel(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled {
		t.Error("cancel succeeded although the post was no longer scheduled")
	}
}

func TestCheckByUserID(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectQuery("SELECT 1 FROM scheduled_posts").
		WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	ok, err := repo.CheckByUserID(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("CheckByUserID failed: %v", err)
	}
	if !ok {
		t.Error("expected ownership check to pass")
	}
}
