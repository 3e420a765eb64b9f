package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	cfg "github.com/showfolio/crosspost/configs"
)

const maxMediaBytes = 100 * 1024 * 1024

// MediaService re-hosts user-supplied media in R2 before a post is stored.
// Platforms pull media by URL at publish time, possibly hours later, so the
// post must not depend on the user's origin host staying up.
type MediaService struct {
	config cfg.Config
	client *http.Client
}

func NewMediaService(cfg cfg.Config) *MediaService {
	return &MediaService{
		config: cfg,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (m *MediaService) r2Client() (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
	}), nil
}

// Mirror fetches each URL, verifies the content type, and uploads a copy to
// R2. Returns the mirrored URLs in the same order. Any bad item fails the
// whole batch; this runs at creation time where errors surface to the caller.
func (m *MediaService) Mirror(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	r2Client, err := m.r2Client()
	if err != nil {
		return nil, err
	}

	mirrored := make([]string, 0, len(urls))
	for _, u := range urls {
		data, err := m.fetch(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("error fetching media %s: %w", u, err)
		}

		fileType, err := filetype.Match(data)
		if err != nil || fileType == types.Unknown {
			return nil, fmt.Errorf("unsupported media type at %s", u)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return nil, fmt.Errorf("media type %s is not allowed", fileType.Extension)
		}

		key, err := gonanoid.New()
		if err != nil {
			return nil, err
		}

		_, err = r2Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.config.R2.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(fileType.MIME.Value),
		})
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("error uploading media: %w", err)
		}

		mirrored = append(mirrored, fmt.Sprintf("%s/%s", m.config.R2.PublicBase, key))
	}

	return mirrored, nil
}

func (m *MediaService) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
}
