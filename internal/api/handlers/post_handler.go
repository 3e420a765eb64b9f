package handlers

import (
	"errors"
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/queue"
	"github.com/showfolio/crosspost/internal/service"
	"github.com/showfolio/crosspost/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
	Inspector   *asynq.Inspector
}

func NewPostHandler(s service.PostService, asynqClient *asynq.Client, inspector *asynq.Inspector) *PostHandler {
	return &PostHandler{s: s, AsynqClient: asynqClient, Inspector: inspector}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	postID, delay, err := h.s.Create(c.Context(), userID, &pc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	taskID, err := queue.EnqueuePublish(h.AsynqClient, queue.PublishPostPayload{PostID: postID}, delay)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error scheduling post",
		})
	}

	if err := h.s.AttachJob(c.Context(), postID, taskID); err != nil {
		log.Printf("Error attaching job id to post %d: %v", postID, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":     postID,
		"status": models.PostStatusScheduled,
	})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	jobID, err := h.s.Cancel(c.Context(), userID, int64(postID))
	if err != nil {
		if errors.Is(err, service.ErrNotCancellable) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Best-effort: a task that already left the queue is stopped by the
	// worker's claim guard instead.
	if jobID != "" {
		if err := queue.CancelPublish(h.Inspector, jobID); err != nil {
			log.Printf("Could not remove pending task %s for post %d: %v", jobID, postID, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": models.PostStatusCancelled,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.Info(c.Context(), int64(postID), userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostLogs(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	logs, err := h.s.Logs(c.Context(), int64(postID), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get publish logs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(logs)
}
