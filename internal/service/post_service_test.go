package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/transfer"
)

type stubPostRepo struct {
	created   *models.ScheduledPost
	stored    *models.ScheduledPost
	cancelOK  bool
	cancelled bool
}

func (s *stubPostRepo) Create(ctx context.Context, post *models.ScheduledPost) (int64, error) {
	s.created = post
	return 42, nil
}

func (s *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	if s.stored == nil || s.stored.ID != id {
		return nil, nil
	}
	return s.stored, nil
}

func (s *stubPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	if s.stored == nil || s.stored.UserID != userID {
		return nil, nil
	}
	return []*models.ScheduledPost{s.stored}, nil
}

func (s *stubPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return s.stored != nil && s.stored.ID == postID && s.stored.UserID == userID, nil
}

func (s *stubPostRepo) ClaimProcessing(ctx context.Context, id int64) (bool, error) {
	return false, errors.New("not implemented")
}

func (s *stubPostRepo) SetResult(ctx context.Context, id int64, status string, result *models.PostResult) error {
	return nil
}

func (s *stubPostRepo) MarkFailed(ctx context.Context, id int64, message string) error { return nil }

func (s *stubPostRepo) SetJobID(ctx context.Context, id int64, jobID string) error { return nil }

func (s *stubPostRepo) Cancel(ctx context.Context, id, userID int64) (bool, error) {
	s.cancelled = true
	return s.cancelOK, nil
}

type stubProjectRepo struct {
	project *models.Project
}

func (s *stubProjectRepo) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	if s.project == nil || s.project.ID != id {
		return nil, nil
	}
	return s.project, nil
}

func (s *stubProjectRepo) CheckByUserID(ctx context.Context, projectID, userID int64) (bool, error) {
	return s.project != nil && s.project.ID == projectID && s.project.UserID == userID, nil
}

type stubLogRepo struct {
	rows []*models.PublishLog
}

func (s *stubLogRepo) Create(ctx context.Context, l *models.PublishLog) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *stubLogRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishLog, error) {
	return s.rows, nil
}

func (s *stubLogRepo) NextAttempt(ctx context.Context, postID int64) (int, error) { return 1, nil }

type stubMirror struct {
	in  []string
	out []string
	err error
}

func (s *stubMirror) Mirror(ctx context.Context, urls []string) ([]string, error) {
	s.in = urls
	return s.out, s.err
}

func futureSchedule() string {
	return time.Now().Add(time.Hour).Format(scheduleTimeLayout)
}

func newTestService(pr *stubPostRepo, pj *stubProjectRepo, mirror *stubMirror) PostService {
	return NewPostService(pr, pj, &stubLogRepo{}, NewComposer(), mirror)
}

func testProject() *models.Project {
	return &models.Project{ID: 3, UserID: 7, Name: "Weather App", Description: "Live forecasts", LiveURL: "https://weather.example.com"}
}

func TestCreate_EmptyPlatforms(t *testing.T) {
	pr := &stubPostRepo{}
	s := newTestService(pr, &stubProjectRepo{project: testProject()}, &stubMirror{})

	_, _, err := s.Create(context.Background(), 7, &transfer.PostCreation{
		ProjectID:   3,
		ScheduledAt: futureSchedule(),
	})
	if err == nil {
		t.Fatal("expected an error for empty platforms")
	}
	if pr.created != nil {
		t.Error("post was persisted despite validation failure")
	}
}

func TestCreate_UnknownPlatform(t *testing.T) {
	pr := &stubPostRepo{}
	s := newTestService(pr, &stubProjectRepo{project: testProject()}, &stubMirror{})

	_, _, err := s.Create(context.Background(), 7, &transfer.PostCreation{
		ProjectID:   3,
		Platforms:   []models.Platform{"tiktok"},
		ScheduledAt: futureSchedule(),
	})
	if err == nil {
		t.Fatal("expected an error for an unknown platform")
	}
	if pr.created != nil {
		t.Error("post was persisted despite validation failure")
	}
}

func TestCreate_PastScheduleTime(t *testing.T) {
	pr := &stubPostRepo{}
	s := newTestService(pr, &stubProjectRepo{project: testProject()}, &stubMirror{})

	_, _, err := s.Create(context.Background(), 7, &transfer.PostCreation{
		ProjectID:   3,
		Platforms:   []models.Platform{models.PlatformTwitter},
		ScheduledAt: time.Now().Add(-time.Hour).Format(scheduleTimeLayout),
	})
	if err == nil {
		t.Fatal("expected an error for a past schedule time")
	}
	if pr.created != nil {
		t.Error("post was persisted despite validation failure")
	}
}

func TestCreate_OverrideForUnselectedPlatform(t *testing.T) {
	pr := &stubPostRepo{}
	s := newTestService(pr, &stubProjectRepo{project: testProject()}, &stubMirror{})

	_, _, err := s.Create(context.Background(), 7, &transfer.PostCreation{
		ProjectID:   3,
		Platforms:   []models.Platform{models.PlatformTwitter},
		Messages:    map[models.Platform]string{models.PlatformReddit: "custom"},
		ScheduledAt: futureSchedule(),
	})
	if err == nil {
		t.Fatal("expected an error for an override outside the platform list")
	}
}

func TestCreate_Success(t *testing.T) {
	pr := &stubPostRepo{}
	mirror := &stubMirror{out: []string{"https://cdn.example.com/abc"}}
	s := newTestService(pr, &stubProjectRepo{project: testProject()}, mirror)

	postID, delay, err := s.Create(context.Background(), 7, &transfer.PostCreation{
		ProjectID:   3,
		Platforms:   []models.Platform{models.PlatformTwitter, models.PlatformLinkedin},
		Messages:    map[models.Platform]string{models.PlatformTwitter: "custom tweet"},
		MediaURLs:   []string{"https://user.example.com/pic.png"},
		ScheduledAt: futureSchedule(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if postID != 42 {
		t.Errorf("got post id %d, want 42", postID)
	}
	if delay <= 0 {
		t.Errorf("got delay %v, want > 0", delay)
	}
	if pr.created.Status != models.PostStatusScheduled {
		t.Errorf("got status %q, want %q", pr.created.Status, models.PostStatusScheduled)
	}
	if pr.created.Messages[models.PlatformTwitter] != "custom tweet" {
		t.Errorf("override lost: got %q", pr.created.Messages[models.PlatformTwitter])
	}
	if !strings.Contains(pr.created.Messages[models.PlatformLinkedin], "Weather App") {
		t.Errorf("composed linkedin message missing project name: %q", pr.created.Messages[models.PlatformLinkedin])
	}
	if !reflect.DeepEqual(pr.created.MediaURLs, mirror.out) {
		t.Errorf("got media urls %v, want mirrored %v", pr.created.MediaURLs, mirror.out)
	}
	if !reflect.DeepEqual(mirror.in, []string{"https://user.example.com/pic.png"}) {
		t.Errorf("mirror received %v", mirror.in)
	}
}

func TestCreate_ProjectOwnedByAnotherUser(t *testing.T) {
	pr := &stubPostRepo{}
	s := newTestService(pr, &stubProjectRepo{project: testProject()}, &stubMirror{})

	_, _, err := s.Create(context.Background(), 99, &transfer.PostCreation{
		ProjectID:   3,
		Platforms:   []models.Platform{models.PlatformTwitter},
		ScheduledAt: futureSchedule(),
	})
	if err == nil {
		t.Fatal("expected an error for a foreign project")
	}
}

func TestCancel_Scheduled(t *testing.T) {
	pr := &stubPostRepo{
		stored:   &models.ScheduledPost{ID: 42, UserID: 7, Status: models.PostStatusScheduled, JobID: "task-1"},
		cancelOK: true,
	}
	s := newTestService(pr, &stubProjectRepo{}, &stubMirror{})

	jobID, err := s.Cancel(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if jobID != "task-1" {
		t.Errorf("got job id %q, want task-1", jobID)
	}
}

func TestCancel_AlreadyProcessing(t *testing.T) {
	pr := &stubPostRepo{
		stored: &models.ScheduledPost{ID: 42, UserID: 7, Status: models.PostStatusProcessing},
	}
	s := newTestService(pr, &stubProjectRepo{}, &stubMirror{})

	_, err := s.Cancel(context.Background(), 7, 42)
	if !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("got %v, want ErrNotCancellable", err)
	}
}

func TestCancel_WrongOwner(t *testing.T) {
	pr := &stubPostRepo{
		stored:   &models.ScheduledPost{ID: 42, UserID: 7, Status: models.PostStatusScheduled},
		cancelOK: true,
	}
	s := newTestService(pr, &stubProjectRepo{}, &stubMirror{})

	_, err := s.Cancel(context.Background(), 99, 42)
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("got %v, want ErrPostNotFound", err)
	}
	if pr.cancelled {
		t.Error("repository Cancel was reached for a foreign post")
	}
}

func TestInfo_ReadsAreIdempotent(t *testing.T) {
	pr := &stubPostRepo{
		stored: &models.ScheduledPost{
			ID:        42,
			UserID:    7,
			Status:    models.PostStatusPosted,
			Platforms: []models.Platform{models.PlatformTwitter},
			Result: &models.PostResult{
				Results: map[models.Platform]models.PlatformSuccess{
					models.PlatformTwitter: {PostID: "tw-1", URL: "https://twitter.com/i/web/status/tw-1"},
				},
			},
		},
	}
	s := newTestService(pr, &stubProjectRepo{}, &stubMirror{})

	first, err := s.Info(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	second, err := s.Info(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated reads differ: %+v vs %+v", first, second)
	}
}
