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

const linkedinAPIBase = "https://api.linkedin.com"

type linkedinAdapter struct {
	client  *http.Client
	apiBase string
}

func NewLinkedinAdapter(client *http.Client) Adapter {
	return &linkedinAdapter{client: client, apiBase: linkedinAPIBase}
}

func (a *linkedinAdapter) Platform() models.Platform {
	return models.PlatformLinkedin
}

type linkedinShareMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type linkedinShareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string               `json:"shareMediaCategory"`
	Media              []linkedinShareMedia `json:"media,omitempty"`
}

type linkedinPostRequest struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent linkedinShareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

func (a *linkedinAdapter) Publish(ctx context.Context, creds Credentials, payload *PublishPayload) (*Result, error) {
	var body linkedinPostRequest
	body.Author = fmt.Sprintf("urn:li:person:%s", creds.AccountID)
	body.LifecycleState = "PUBLISHED"
	body.SpecificContent.ShareContent.ShareCommentary.Text = payload.Message
	body.SpecificContent.ShareContent.ShareMediaCategory = "NONE"
	body.Visibility.MemberNetworkVisibility = "PUBLIC"

	if len(payload.MediaURLs) > 0 {
		body.SpecificContent.ShareContent.ShareMediaCategory = "IMAGE"
		for _, u := range payload.MediaURLs {
			body.SpecificContent.ShareContent.Media = append(body.SpecificContent.ShareContent.Media,
				linkedinShareMedia{Status: "READY", OriginalURL: u})
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/v2/ugcPosts", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	raw := readBody(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authFailure(raw, "linkedin access token rejected"), nil
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return failure(raw, fmt.Sprintf("linkedin returned status %d", resp.StatusCode)), nil
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return failure(raw, "linkedin returned an unreadable response"), nil
	}

	return &Result{
		Success:  true,
		PostID:   result.ID,
		URL:      fmt.Sprintf("https://www.linkedin.com/feed/update/%s", result.ID),
		Response: raw,
	}, nil
}
