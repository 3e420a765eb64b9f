package models

import "time"

// Platform is the closed set of networks a post can target. Adding a network
// means adding a constant here plus one adapter in internal/platforms.
type Platform string

const (
	PlatformLinkedin  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformReddit    Platform = "reddit"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

var AllPlatforms = []Platform{
	PlatformLinkedin,
	PlatformTwitter,
	PlatformReddit,
	PlatformFacebook,
	PlatformInstagram,
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformLinkedin, PlatformTwitter, PlatformReddit, PlatformFacebook, PlatformInstagram:
		return true
	}
	return false
}

type ScheduledPost struct {
	ID          int64               `db:"id" json:"id"`
	UserID      int64               `db:"user_id" json:"user_id"`
	ProjectID   int64               `db:"project_id" json:"project_id"`
	Platforms   []Platform          `db:"platforms" json:"platforms"`
	Messages    map[Platform]string `db:"messages" json:"messages"`
	MediaURLs   []string            `db:"media_urls" json:"media_urls"`
	ScheduledAt time.Time           `db:"scheduled_at" json:"scheduled_at"`
	Status      string              `db:"status" json:"status"`
	Result      *PostResult         `db:"result" json:"result,omitempty"`
	JobID       string              `db:"job_id" json:"-"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// PostResult is the structured outcome written once the worker reaches a
// terminal state. A post is "posted" when Results has at least one entry,
// even if Errors is non-empty.
type PostResult struct {
	Results     map[Platform]PlatformSuccess `json:"results,omitempty"`
	Errors      map[Platform]string          `json:"errors,omitempty"`
	Error       string                       `json:"error,omitempty"`
	ProcessedAt time.Time                    `json:"processed_at"`
}

type PlatformSuccess struct {
	PostID string `json:"post_id"`
	URL    string `json:"url"`
}

const (
	PostStatusScheduled  = "scheduled"
	PostStatusProcessing = "processing"
	PostStatusPosted     = "posted"
	PostStatusFailed     = "failed"
	PostStatusCancelled  = "cancelled"
)
