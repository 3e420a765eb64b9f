package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/showfolio/crosspost/internal/models"
)

const twitterAPIBase = "https://api.twitter.com"

// Media attachments need the separate v1.1 chunked-upload flow, which the
// publisher does not implement; tweets go out text-only with the project link
// already composed into the message.
type twitterAdapter struct {
	client  *http.Client
	apiBase string
}

func NewTwitterAdapter(client *http.Client) Adapter {
	return &twitterAdapter{client: client, apiBase: twitterAPIBase}
}

func (a *twitterAdapter) Platform() models.Platform {
	return models.PlatformTwitter
}

func (a *twitterAdapter) Publish(ctx context.Context, creds Credentials, payload *PublishPayload) (*Result, error) {
	jsonData, err := json.Marshal(map[string]string{"text": payload.Message})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/2/tweets", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	raw := readBody(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authFailure(raw, "twitter access token rejected"), nil
	}
	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		msg := fmt.Sprintf("twitter returned status %d", resp.StatusCode)
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Detail != "" {
			msg = "twitter: " + apiErr.Detail
		}
		return failure(raw, msg), nil
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return failure(raw, "twitter returned an unreadable response"), nil
	}

	return &Result{
		Success:  true,
		PostID:   result.Data.ID,
		URL:      fmt.Sprintf("https://twitter.com/i/web/status/%s", result.Data.ID),
		Response: raw,
	}, nil
}
