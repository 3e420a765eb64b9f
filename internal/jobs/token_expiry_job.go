package job

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/showfolio/crosspost/internal/repository"
)

// TokenExpiryJob keeps is_active honest: the worker trusts the flag at
// dispatch time, so expired credentials must be swept off before they turn
// into avoidable provider errors.
type TokenExpiryJob struct {
	tr repository.PlatformTokenRepository
}

func NewTokenExpiryJob(tr repository.PlatformTokenRepository) *TokenExpiryJob {
	return &TokenExpiryJob{tr: tr}
}

func (j *TokenExpiryJob) DeactivateExpired() {
	ctx := context.Background()

	n, err := j.tr.DeactivateExpired(ctx, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		log.Printf("Deactivated %d expired platform tokens", n)
	}
}
