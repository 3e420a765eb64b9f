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

const instagramAPIBase = "https://graph.facebook.com/v19.0"

// Instagram publishing is the two-step container flow: create a media
// container from an image URL, then publish it. There is no text-only post on
// the Graph API, so a post without media fails before any network call.
type instagramAdapter struct {
	client  *http.Client
	apiBase string
}

func NewInstagramAdapter(client *http.Client) Adapter {
	return &instagramAdapter{client: client, apiBase: instagramAPIBase}
}

func (a *instagramAdapter) Platform() models.Platform {
	return models.PlatformInstagram
}

func (a *instagramAdapter) Publish(ctx context.Context, creds Credentials, payload *PublishPayload) (*Result, error) {
	if len(payload.MediaURLs) == 0 {
		return failure(nil, "instagram requires at least one media item"), nil
	}

	containerID, raw, res, err := a.createContainer(ctx, creds, payload)
	if err != nil || res != nil {
		return res, err
	}

	data := url.Values{}
	data.Set("creation_id", containerID)
	data.Set("access_token", creds.AccessToken)

	publishURL := fmt.Sprintf("%s/%s/media_publish", a.apiBase, creds.AccountID)
	resp, err := a.postForm(ctx, publishURL, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw = readBody(resp)
	if res := instagramError(resp, raw); res != nil {
		return res, nil
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return failure(raw, "instagram returned an unreadable response"), nil
	}

	return &Result{
		Success:  true,
		PostID:   result.ID,
		URL:      a.permalink(ctx, creds, result.ID),
		Response: raw,
	}, nil
}

func (a *instagramAdapter) createContainer(ctx context.Context, creds Credentials, payload *PublishPayload) (string, []byte, *Result, error) {
	data := url.Values{}
	data.Set("image_url", payload.MediaURLs[0])
	data.Set("caption", payload.Message)
	data.Set("access_token", creds.AccessToken)

	containerURL := fmt.Sprintf("%s/%s/media", a.apiBase, creds.AccountID)
	resp, err := a.postForm(ctx, containerURL, data)
	if err != nil {
		return "", nil, nil, err
	}
	defer resp.Body.Close()

	raw := readBody(resp)
	if res := instagramError(resp, raw); res != nil {
		return "", raw, res, nil
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", raw, failure(raw, "instagram returned an unreadable response"), nil
	}

	return result.ID, raw, nil, nil
}

// permalink is best-effort; the post is already live when this runs.
func (a *instagramAdapter) permalink(ctx context.Context, creds Credentials, mediaID string) string {
	u := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s", a.apiBase, mediaID, url.QueryEscape(creds.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ""
	}

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return ""
	}
	defer resp.Body.Close()

	var result struct {
		Permalink string `json:"permalink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	return result.Permalink
}

func (a *instagramAdapter) postForm(ctx context.Context, u string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return resp, nil
}

func instagramError(resp *http.Response, raw []byte) *Result {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	msg := fmt.Sprintf("instagram returned status %d", resp.StatusCode)
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = "instagram: " + apiErr.Error.Message
	}
	if apiErr.Error.Code == 190 || resp.StatusCode == http.StatusUnauthorized {
		return authFailure(raw, msg)
	}
	return failure(raw, msg)
}
