package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/showfolio/crosspost/internal/models"
)

// MetricsCollector is the hook into the analytics subsystem. The publisher
// only hands over the attribution triple; what happens to it is not its
// concern.
type MetricsCollector interface {
	Collect(ctx context.Context, postID int64, platform models.Platform, platformPostID string) error
}

// LogCollector is the default collector used when no analytics backend is
// wired in.
type LogCollector struct{}

func (LogCollector) Collect(_ context.Context, postID int64, platform models.Platform, platformPostID string) error {
	slog.Info("engagement collection due",
		"post_id", postID,
		"platform", string(platform),
		"platform_post_id", platformPostID,
	)
	return nil
}

func (w *Worker) HandleCollectMetricsTask(ctx context.Context, task *asynq.Task) error {
	var payload CollectMetricsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.metrics.Collect(ctx, payload.PostID, payload.Platform, payload.PlatformPostID)
}
