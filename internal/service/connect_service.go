package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	config "github.com/showfolio/crosspost/configs"
	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/repository"
	"github.com/showfolio/crosspost/pkg/utils"
)

// ConnectService runs the OAuth dance for each network and stores the
// resulting credential as a PlatformToken. Tokens are encrypted before they
// touch the database.
type ConnectService interface {
	AuthURL(platform models.Platform, state string) (string, error)
	Callback(ctx context.Context, platform models.Platform, code string, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.PlatformToken, error)
	Disconnect(ctx context.Context, userID, tokenID int64) error
}

type connectService struct {
	cfg    config.Config
	tr     repository.PlatformTokenRepository
	client *http.Client
}

func NewConnectService(cfg config.Config, tr repository.PlatformTokenRepository) ConnectService {
	return &connectService{
		cfg:    cfg,
		tr:     tr,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *connectService) oauthConfig(platform models.Platform) (*oauth2.Config, error) {
	switch platform {
	case models.PlatformLinkedin:
		return &oauth2.Config{
			ClientID:     s.cfg.Linkedin.ClientID,
			ClientSecret: s.cfg.Linkedin.ClientSecret,
			RedirectURL:  s.cfg.Linkedin.RedirectURI,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
				TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
			},
		}, nil
	case models.PlatformTwitter:
		return &oauth2.Config{
			ClientID:     s.cfg.Twitter.ClientID,
			ClientSecret: s.cfg.Twitter.ClientSecret,
			RedirectURL:  s.cfg.Twitter.RedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://twitter.com/i/oauth2/authorize",
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
		}, nil
	case models.PlatformReddit:
		return &oauth2.Config{
			ClientID:     s.cfg.Reddit.ClientID,
			ClientSecret: s.cfg.Reddit.ClientSecret,
			RedirectURL:  s.cfg.Reddit.RedirectURI,
			Scopes:       []string{"identity", "submit"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.reddit.com/api/v1/authorize",
				TokenURL: "https://www.reddit.com/api/v1/access_token",
			},
		}, nil
	case models.PlatformFacebook, models.PlatformInstagram:
		// Both run through the same Meta app; the scopes differ.
		scopes := []string{"pages_manage_posts", "pages_read_engagement"}
		if platform == models.PlatformInstagram {
			scopes = []string{"instagram_basic", "instagram_content_publish"}
		}
		return &oauth2.Config{
			ClientID:     s.cfg.Facebook.ClientID,
			ClientSecret: s.cfg.Facebook.ClientSecret,
			RedirectURL:  s.cfg.Facebook.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
				TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown platform %q", platform)
}

func (s *connectService) AuthURL(platform models.Platform, state string) (string, error) {
	oc, err := s.oauthConfig(platform)
	if err != nil {
		return "", err
	}
	return oc.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (s *connectService) Callback(ctx context.Context, platform models.Platform, code string, userID int64) error {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return err
	}
	if userID == 0 {
		err := errors.New("user not found")
		slog.Info(err.Error())
		return err
	}

	oc, err := s.oauthConfig(platform)
	if err != nil {
		return err
	}

	token, err := oc.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	account, err := s.accountInfo(ctx, platform, token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefreshToken := encryptedAccessToken
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		// Some networks hand out non-expiring tokens; keep the sweep job off
		// their back for a long while.
		expiresAt = time.Now().Add(365 * 24 * time.Hour)
	}

	_, err = s.tr.Upsert(ctx, &models.PlatformToken{
		UserID:          userID,
		Platform:        platform,
		AccountID:       account.ID,
		AccountName:     account.Name,
		AccountUsername: account.Username,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  expiresAt,
	})
	return err
}

type accountIdentity struct {
	ID       string
	Name     string
	Username string
}

func (s *connectService) accountInfo(ctx context.Context, platform models.Platform, accessToken string) (*accountIdentity, error) {
	switch platform {
	case models.PlatformLinkedin:
		var v struct {
			Sub  string `json:"sub"`
			Name string `json:"name"`
		}
		if err := s.getJSON(ctx, "https://api.linkedin.com/v2/userinfo", accessToken, &v); err != nil {
			return nil, err
		}
		return &accountIdentity{ID: v.Sub, Name: v.Name}, nil
	case models.PlatformTwitter:
		var v struct {
			Data struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Username string `json:"username"`
			} `json:"data"`
		}
		if err := s.getJSON(ctx, "https://api.twitter.com/2/users/me", accessToken, &v); err != nil {
			return nil, err
		}
		return &accountIdentity{ID: v.Data.ID, Name: v.Data.Name, Username: v.Data.Username}, nil
	case models.PlatformReddit:
		var v struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := s.getJSON(ctx, "https://oauth.reddit.com/api/v1/me", accessToken, &v); err != nil {
			return nil, err
		}
		return &accountIdentity{ID: v.ID, Name: v.Name, Username: v.Name}, nil
	case models.PlatformFacebook, models.PlatformInstagram:
		var v struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := s.getJSON(ctx, "https://graph.facebook.com/v19.0/me?fields=id,name", accessToken, &v); err != nil {
			return nil, err
		}
		return &accountIdentity{ID: v.ID, Name: v.Name}, nil
	}
	return nil, fmt.Errorf("unknown platform %q", platform)
}

func (s *connectService) getJSON(ctx context.Context, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", "crosspost/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("account info request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *connectService) List(ctx context.Context, userID int64) ([]*models.PlatformToken, error) {
	return s.tr.ListByUserID(ctx, userID)
}

func (s *connectService) Disconnect(ctx context.Context, userID, tokenID int64) error {
	return s.tr.Remove(ctx, tokenID, userID)
}
