package models

import (
	"encoding/json"
	"time"
)

// PublishLog is one immutable row per (post, platform, attempt). Rows are only
// ever inserted; a re-run appends with a higher attempt number.
type PublishLog struct {
	ID               int64           `db:"id" json:"id"`
	PostID           int64           `db:"post_id" json:"post_id"`
	Platform         Platform        `db:"platform" json:"platform"`
	Attempt          int             `db:"attempt" json:"attempt"`
	Status           string          `db:"status" json:"status"`
	PlatformResponse json.RawMessage `db:"platform_response" json:"platform_response,omitempty"`
	PlatformPostID   string          `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage     string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)
