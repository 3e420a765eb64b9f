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

const facebookAPIBase = "https://graph.facebook.com/v19.0"

type facebookAdapter struct {
	client  *http.Client
	apiBase string
}

func NewFacebookAdapter(client *http.Client) Adapter {
	return &facebookAdapter{client: client, apiBase: facebookAPIBase}
}

func (a *facebookAdapter) Platform() models.Platform {
	return models.PlatformFacebook
}

func (a *facebookAdapter) Publish(ctx context.Context, creds Credentials, payload *PublishPayload) (*Result, error) {
	data := url.Values{}
	data.Set("access_token", creds.AccessToken)

	// Photo posts go through /photos so the image renders inline; plain feed
	// posts carry the project link for the preview card.
	endpoint := fmt.Sprintf("%s/%s/feed", a.apiBase, creds.AccountID)
	data.Set("message", payload.Message)
	if len(payload.MediaURLs) > 0 {
		endpoint = fmt.Sprintf("%s/%s/photos", a.apiBase, creds.AccountID)
		data.Set("url", payload.MediaURLs[0])
		data.Set("caption", payload.Message)
	} else if payload.ProjectURL != "" {
		data.Set("link", payload.ProjectURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	raw := readBody(resp)

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		msg := fmt.Sprintf("facebook returned status %d", resp.StatusCode)
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = "facebook: " + apiErr.Error.Message
		}
		// Graph API error code 190 covers invalid and expired tokens.
		if apiErr.Error.Code == 190 || resp.StatusCode == http.StatusUnauthorized {
			return authFailure(raw, msg), nil
		}
		return failure(raw, msg), nil
	}

	var result struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return failure(raw, "facebook returned an unreadable response"), nil
	}

	postID := result.PostID
	if postID == "" {
		postID = result.ID
	}

	return &Result{
		Success:  true,
		PostID:   postID,
		URL:      fmt.Sprintf("https://www.facebook.com/%s", postID),
		Response: raw,
	}, nil
}
