package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/showfolio/crosspost/internal/models"
)

const redditAPIBase = "https://oauth.reddit.com"

// Posts land on the user's profile feed (the u_<username> subreddit), which
// is the only destination that needs no per-post subreddit choice.
type redditAdapter struct {
	client  *http.Client
	apiBase string
}

func NewRedditAdapter(client *http.Client) Adapter {
	return &redditAdapter{client: client, apiBase: redditAPIBase}
}

func (a *redditAdapter) Platform() models.Platform {
	return models.PlatformReddit
}

func (a *redditAdapter) Publish(ctx context.Context, creds Credentials, payload *PublishPayload) (*Result, error) {
	data := url.Values{}
	data.Set("sr", "u_"+creds.AccountUsername)
	data.Set("title", payload.ProjectName)
	data.Set("api_type", "json")
	data.Set("resubmit", "true")

	if payload.ProjectURL != "" {
		data.Set("kind", "link")
		data.Set("url", payload.ProjectURL)
	} else {
		data.Set("kind", "self")
		data.Set("text", payload.Message)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/api/submit", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "crosspost/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	raw := readBody(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authFailure(raw, "reddit access token rejected"), nil
	}
	if resp.StatusCode != http.StatusOK {
		return failure(raw, fmt.Sprintf("reddit returned status %d", resp.StatusCode)), nil
	}

	var result struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return failure(raw, "reddit returned an unreadable response"), nil
	}
	if len(result.JSON.Errors) > 0 {
		return failure(raw, fmt.Sprintf("reddit rejected the submission: %v", result.JSON.Errors[0])), nil
	}

	return &Result{
		Success:  true,
		PostID:   result.JSON.Data.ID,
		URL:      result.JSON.Data.URL,
		Response: raw,
	}, nil
}
