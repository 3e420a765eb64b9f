package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/showfolio/crosspost/internal/models"
)

// PublishPayload is the generic publish request handed to every adapter.
type PublishPayload struct {
	Message     string
	MediaURLs   []string
	ProjectID   int64
	ProjectName string
	ProjectURL  string
}

// Credentials carry the decrypted access token plus the provider-side account
// identity some networks need to address the author.
type Credentials struct {
	AccessToken     string
	AccountID       string
	AccountUsername string
}

// Result is the normalized outcome of one publish call. Provider-side
// failures (rate limits, validation, expired auth) come back as Success=false
// with ErrorMessage set; an adapter only returns a Go error for transport
// failures that never reached the provider.
type Result struct {
	Success      bool
	PostID       string
	URL          string
	Response     json.RawMessage
	ErrorMessage string
	AuthExpired  bool
}

type Adapter interface {
	Platform() models.Platform
	Publish(ctx context.Context, creds Credentials, payload *PublishPayload) (*Result, error)
}

// Registry holds one adapter per platform. The switch in For is exhaustive
// over models.Platform so a new network fails loudly until it gets an adapter.
type Registry struct {
	linkedin  Adapter
	twitter   Adapter
	reddit    Adapter
	facebook  Adapter
	instagram Adapter
}

func NewRegistry() *Registry {
	client := &http.Client{Timeout: 30 * time.Second}
	return &Registry{
		linkedin:  NewLinkedinAdapter(client),
		twitter:   NewTwitterAdapter(client),
		reddit:    NewRedditAdapter(client),
		facebook:  NewFacebookAdapter(client),
		instagram: NewInstagramAdapter(client),
	}
}

func (r *Registry) For(p models.Platform) (Adapter, error) {
	switch p {
	case models.PlatformLinkedin:
		return r.linkedin, nil
	case models.PlatformTwitter:
		return r.twitter, nil
	case models.PlatformReddit:
		return r.reddit, nil
	case models.PlatformFacebook:
		return r.facebook, nil
	case models.PlatformInstagram:
		return r.instagram, nil
	}
	return nil, fmt.Errorf("no adapter registered for platform %q", p)
}

func failure(response []byte, message string) *Result {
	return &Result{
		Success:      false,
		Response:     response,
		ErrorMessage: message,
	}
}

func authFailure(response []byte, message string) *Result {
	res := failure(response, message)
	res.AuthExpired = true
	return res
}

func readBody(resp *http.Response) []byte {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	return body
}
