package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/repository"
	"github.com/showfolio/crosspost/internal/transfer"
)

var (
	ErrPostNotFound = errors.New("post doesn't exist")
	// ErrNotCancellable covers both terminal posts and posts already picked
	// up by the worker; neither may be cancelled.
	ErrNotCancellable = errors.New("post is no longer scheduled")
)

const scheduleTimeLayout = "2006-01-02T15:04"

// MessageComposer and MediaMirror are satisfied by Composer and MediaService.
type MessageComposer interface {
	Compose(project *models.Project, requested []models.Platform, overrides map[models.Platform]string) map[models.Platform]string
}

type MediaMirror interface {
	Mirror(ctx context.Context, urls []string) ([]string, error)
}

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Duration, error)
	AttachJob(ctx context.Context, postID int64, jobID string) error
	Cancel(ctx context.Context, userID, postID int64) (string, error)
	Info(ctx context.Context, postID, userID int64) (*transfer.PostStatus, error)
	List(ctx context.Context, userID int64) ([]*transfer.PostStatus, error)
	Logs(ctx context.Context, postID, userID int64) ([]*transfer.PublishLogEntry, error)
}

type postService struct {
	pr       repository.ScheduledPostRepository
	pj       repository.ProjectRepository
	lr       repository.PublishLogRepository
	composer MessageComposer
	media    MediaMirror
}

func NewPostService(
	pr repository.ScheduledPostRepository,
	pj repository.ProjectRepository,
	lr repository.PublishLogRepository,
	composer MessageComposer,
	media MediaMirror) PostService {
	return &postService{
		pr:       pr,
		pj:       pj,
		lr:       lr,
		composer: composer,
		media:    media,
	}
}

// Create validates and persists a scheduled post. No job is enqueued here;
// the handler does that once the row is committed, so a validation failure
// can never leave a dangling task.
func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}

	platforms, err := validatePlatforms(pc.Platforms)
	if err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	for platform := range pc.Messages {
		if !containsPlatform(platforms, platform) {
			err := fmt.Errorf("message override for %q targets a platform not in the post", platform)
			slog.Info(err.Error())
			return 0, 0, err
		}
	}

	scheduledAt, err := time.Parse(scheduleTimeLayout, pc.ScheduledAt)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Info(err.Error())
		return 0, 0, err
	}
	if !scheduledAt.After(time.Now()) {
		err := errors.New("scheduled time must be in the future")
		slog.Info(err.Error())
		return 0, 0, err
	}

	project, err := s.pj.GetByID(ctx, pc.ProjectID)
	if err != nil {
		return 0, 0, err
	}
	if project == nil || project.UserID != userID {
		err := errors.New("project doesn't exist")
		slog.Info(err.Error())
		return 0, 0, err
	}

	mediaURLs, err := s.media.Mirror(ctx, pc.MediaURLs)
	if err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	post := models.ScheduledPost{
		UserID:      userID,
		ProjectID:   project.ID,
		Platforms:   platforms,
		Messages:    s.composer.Compose(project, platforms, pc.Messages),
		MediaURLs:   mediaURLs,
		ScheduledAt: scheduledAt,
		Status:      models.PostStatusScheduled,
	}

	postID, err := s.pr.Create(ctx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	delay := time.Until(scheduledAt)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

func validatePlatforms(requested []models.Platform) ([]models.Platform, error) {
	if len(requested) == 0 {
		return nil, errors.New("no platforms selected")
	}

	var platforms []models.Platform
	for _, p := range requested {
		if !p.Valid() {
			return nil, fmt.Errorf("unknown platform %q", p)
		}
		if !containsPlatform(platforms, p) {
			platforms = append(platforms, p)
		}
	}
	return platforms, nil
}

func containsPlatform(platforms []models.Platform, p models.Platform) bool {
	for _, have := range platforms {
		if have == p {
			return true
		}
	}
	return false
}

func (s *postService) AttachJob(ctx context.Context, postID int64, jobID string) error {
	return s.pr.SetJobID(ctx, postID, jobID)
}

// Cancel returns the queue job ID of the cancelled post so the caller can
// best-effort remove the pending task.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) (string, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	if post == nil || post.UserID != userID {
		slog.Info(ErrPostNotFound.Error())
		return "", ErrPostNotFound
	}

	cancelled, err := s.pr.Cancel(ctx, postID, userID)
	if err != nil {
		return "", err
	}
	if !cancelled {
		slog.Info(ErrNotCancellable.Error())
		return "", ErrNotCancellable
	}

	return post.JobID, nil
}

func (s *postService) Info(ctx context.Context, postID, userID int64) (*transfer.PostStatus, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		slog.Info(ErrPostNotFound.Error())
		return nil, ErrPostNotFound
	}

	return postStatus(post), nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*transfer.PostStatus, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}

	statuses := make([]*transfer.PostStatus, 0, len(posts))
	for _, post := range posts {
		statuses = append(statuses, postStatus(post))
	}
	return statuses, nil
}

func (s *postService) Logs(ctx context.Context, postID, userID int64) ([]*transfer.PublishLogEntry, error) {
	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		slog.Info(ErrPostNotFound.Error())
		return nil, ErrPostNotFound
	}

	logs, err := s.lr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	entries := make([]*transfer.PublishLogEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, &transfer.PublishLogEntry{
			Platform:       l.Platform,
			Attempt:        l.Attempt,
			Status:         l.Status,
			PlatformPostID: l.PlatformPostID,
			ErrorMessage:   l.ErrorMessage,
			CreatedAt:      l.CreatedAt,
		})
	}
	return entries, nil
}

func postStatus(post *models.ScheduledPost) *transfer.PostStatus {
	return &transfer.PostStatus{
		ID:          post.ID,
		Status:      post.Status,
		Platforms:   post.Platforms,
		ScheduledAt: post.ScheduledAt,
		Result:      post.Result,
	}
}
