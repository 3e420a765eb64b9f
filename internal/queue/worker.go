package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/platforms"
	"github.com/showfolio/crosspost/pkg/utils"
)

func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.PublishPost(ctx, payload.PostID)
}

// PublishPost runs one publish job end to end: claim the post, fan out to
// every target platform, log each attempt, and reconcile the outcomes into a
// terminal status. A post counts as posted when at least one platform
// succeeded; per-platform failures are recorded, not escalated.
func (w *Worker) PublishPost(ctx context.Context, postID int64) error {
	post, err := w.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("scheduled post %d not found", postID)
	}

	// Single-writer lock. A fire after cancellation, or a duplicate delivery,
	// sees zero affected rows here and must not dispatch anything.
	claimed, err := w.pr.ClaimProcessing(ctx, postID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("Skipping publish for post %d: status is no longer %s", postID, models.PostStatusScheduled)
		return nil
	}

	project, err := w.pj.GetByID(ctx, post.ProjectID)
	if err == nil && project == nil {
		err = fmt.Errorf("project %d not found", post.ProjectID)
	}
	if err != nil {
		w.markFailed(ctx, postID, fmt.Sprintf("could not load project: %v", err))
		return err
	}

	// One attempt number for the whole run, fixed before the fan-out so
	// concurrent platforms write consistent rows.
	attempt, err := w.lr.NextAttempt(ctx, postID)
	if err != nil {
		w.markFailed(ctx, postID, fmt.Sprintf("could not determine attempt number: %v", err))
		return err
	}

	results := make(map[models.Platform]models.PlatformSuccess)
	errs := make(map[models.Platform]string)
	var mu sync.Mutex

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5)

	for _, platform := range post.Platforms {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(platform models.Platform) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome := w.dispatch(ctx, post, project, platform, attempt)

			mu.Lock()
			defer mu.Unlock()
			if outcome.Success {
				results[platform] = models.PlatformSuccess{PostID: outcome.PostID, URL: outcome.URL}
			} else {
				errs[platform] = outcome.ErrorMessage
			}
		}(platform)
	}

	wg.Wait()

	status := models.PostStatusFailed
	if len(results) > 0 {
		status = models.PostStatusPosted
	}

	result := &models.PostResult{
		Results:     results,
		Errors:      errs,
		ProcessedAt: time.Now(),
	}
	if err := w.pr.SetResult(ctx, postID, status, result); err != nil {
		return err
	}

	// Fire-and-forget: metrics scheduling failures never demote a posted post.
	for platform, success := range results {
		err := w.enqueueMetrics(CollectMetricsPayload{
			PostID:         postID,
			Platform:       platform,
			PlatformPostID: success.PostID,
		})
		if err != nil {
			log.Printf("Error scheduling metrics collection for post %d on %s: %v", postID, platform, err)
		}
	}

	return nil
}

// dispatch publishes to a single platform and writes its log row. Every
// failure mode ends up as data in the returned result; nothing here aborts a
// sibling platform.
func (w *Worker) dispatch(ctx context.Context, post *models.ScheduledPost, project *models.Project, platform models.Platform, attempt int) *platforms.Result {
	token, err := w.tr.Get(ctx, post.UserID, platform)

	var outcome *platforms.Result
	switch {
	case err != nil:
		outcome = &platforms.Result{ErrorMessage: fmt.Sprintf("could not load %s credentials: %v", platform, err)}
	case token == nil || !token.IsActive:
		outcome = &platforms.Result{ErrorMessage: fmt.Sprintf("no active %s account connected", platform)}
	default:
		outcome = w.publish(ctx, post, project, platform, token)
	}

	if outcome.AuthExpired && token != nil {
		if err := w.tr.Deactivate(ctx, token.ID); err != nil {
			slog.Info(err.Error())
		}
	}

	row := models.PublishLog{
		PostID:           post.ID,
		Platform:         platform,
		Attempt:          attempt,
		Status:           models.LogStatusFailed,
		PlatformResponse: outcome.Response,
		ErrorMessage:     outcome.ErrorMessage,
	}
	if outcome.Success {
		row.Status = models.LogStatusSuccess
		row.PlatformPostID = outcome.PostID
		row.ErrorMessage = ""
	}
	if _, err := w.lr.Create(ctx, &row); err != nil {
		log.Printf("Error saving publish log for post %d on %s: %v", post.ID, platform, err)
	}

	return outcome
}

func (w *Worker) publish(ctx context.Context, post *models.ScheduledPost, project *models.Project, platform models.Platform, token *models.PlatformToken) *platforms.Result {
	accessToken, err := utils.Decrypt(token.AccessToken, []byte(w.cfg.SecretKey))
	if err != nil {
		return &platforms.Result{ErrorMessage: fmt.Sprintf("could not decrypt %s access token: %v", platform, err)}
	}

	adapter, err := w.reg.For(platform)
	if err != nil {
		return &platforms.Result{ErrorMessage: err.Error()}
	}

	creds := platforms.Credentials{
		AccessToken:     accessToken,
		AccountID:       token.AccountID,
		AccountUsername: token.AccountUsername,
	}
	payload := &platforms.PublishPayload{
		Message:     post.Messages[platform],
		MediaURLs:   post.MediaURLs,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		ProjectURL:  project.LiveURL,
	}

	outcome, err := adapter.Publish(ctx, creds, payload)
	if err != nil {
		// Transport-level failure; the provider never answered.
		return &platforms.Result{ErrorMessage: fmt.Sprintf("%s request failed: %v", platform, err)}
	}
	return outcome
}

func (w *Worker) markFailed(ctx context.Context, postID int64, message string) {
	if err := w.pr.MarkFailed(ctx, postID, message); err != nil {
		log.Printf("Error marking post %d failed: %v", postID, err)
	}
}
