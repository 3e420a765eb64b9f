package service

import (
	"fmt"
	"strings"

	"github.com/showfolio/crosspost/internal/models"
)

const (
	twitterMaxChars = 280
	// t.co wraps any link to 23 characters; one more for the separating space.
	twitterLinkBudget = 24
)

// Composer builds the default per-platform message for a project. An explicit
// override from the request always wins.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

func (c *Composer) Compose(project *models.Project, requested []models.Platform, overrides map[models.Platform]string) map[models.Platform]string {
	messages := make(map[models.Platform]string, len(requested))
	for _, platform := range requested {
		if msg, ok := overrides[platform]; ok && strings.TrimSpace(msg) != "" {
			messages[platform] = msg
			continue
		}
		messages[platform] = c.defaultMessage(platform, project)
	}
	return messages
}

func (c *Composer) defaultMessage(platform models.Platform, project *models.Project) string {
	body := project.Name
	if project.Description != "" {
		body = fmt.Sprintf("%s: %s", project.Name, project.Description)
	}

	switch platform {
	case models.PlatformTwitter:
		limit := twitterMaxChars
		if project.LiveURL != "" {
			limit -= twitterLinkBudget
		}
		body = truncate(body, limit)
		if project.LiveURL != "" {
			body = body + " " + project.LiveURL
		}
		return body
	case models.PlatformReddit:
		// The project name becomes the submission title, so the body only
		// carries the description and link.
		text := project.Description
		if project.LiveURL != "" {
			if text != "" {
				text += "\n\n"
			}
			text += project.LiveURL
		}
		return text
	default:
		if project.LiveURL != "" {
			return body + "\n\n" + project.LiveURL
		}
		return body
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
