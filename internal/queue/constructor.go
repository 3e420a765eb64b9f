package queue

import (
	"github.com/hibiken/asynq"
	config "github.com/showfolio/crosspost/configs"
	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/platforms"
	"github.com/showfolio/crosspost/internal/repository"
)

// AdapterRegistry resolves the adapter for a platform. Satisfied by
// *platforms.Registry; tests substitute fakes.
type AdapterRegistry interface {
	For(p models.Platform) (platforms.Adapter, error)
}

type Worker struct {
	cfg            config.Config
	pr             repository.ScheduledPostRepository
	lr             repository.PublishLogRepository
	tr             repository.PlatformTokenRepository
	pj             repository.ProjectRepository
	reg            AdapterRegistry
	metrics        MetricsCollector
	enqueueMetrics func(payload CollectMetricsPayload) error
}

func NewWorker(
	cfg config.Config,
	pr repository.ScheduledPostRepository,
	lr repository.PublishLogRepository,
	tr repository.PlatformTokenRepository,
	pj repository.ProjectRepository,
	reg AdapterRegistry,
	client *asynq.Client,
	metrics MetricsCollector) *Worker {
	return &Worker{
		cfg:     cfg,
		pr:      pr,
		lr:      lr,
		tr:      tr,
		pj:      pj,
		reg:     reg,
		metrics: metrics,
		enqueueMetrics: func(payload CollectMetricsPayload) error {
			return EnqueueMetrics(client, payload)
		},
	}
}

const (
	TaskTypePublishPost    = "publish:post"
	TaskTypeCollectMetrics = "metrics:collect"
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

type CollectMetricsPayload struct {
	PostID         int64           `json:"post_id"`
	Platform       models.Platform `json:"platform"`
	PlatformPostID string          `json:"platform_post_id"`
}
