package transfer

import (
	"time"

	"github.com/showfolio/crosspost/internal/models"
)

// PostCreation is the creation request body. Messages are optional
// per-platform overrides; platforms without one get a composed default.
type PostCreation struct {
	ProjectID   int64                      `json:"project_id"`
	Platforms   []models.Platform          `json:"platforms"`
	Messages    map[models.Platform]string `json:"messages"`
	MediaURLs   []string                   `json:"media_urls"`
	ScheduledAt string                     `json:"scheduled_at"`
}

// PublishLogEntry is the user-facing view of an attempt; the raw provider
// payload stays internal.
type PublishLogEntry struct {
	Platform       models.Platform `json:"platform"`
	Attempt        int             `json:"attempt"`
	Status         string          `json:"status"`
	PlatformPostID string          `json:"platform_post_id,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type PostStatus struct {
	ID          int64              `json:"id"`
	Status      string             `json:"status"`
	Platforms   []models.Platform  `json:"platforms"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	Result      *models.PostResult `json:"result,omitempty"`
}
