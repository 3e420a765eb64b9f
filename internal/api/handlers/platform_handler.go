package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/showfolio/crosspost/configs"
	"github.com/showfolio/crosspost/internal/models"
	"github.com/showfolio/crosspost/internal/service"
	"github.com/showfolio/crosspost/pkg/utils"
)

type PlatformHandler struct {
	s   service.ConnectService
	cfg config.Config
}

func NewPlatformHandler(s service.ConnectService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{s: s, cfg: cfg}
}

func (h *PlatformHandler) ConnectAccount(c *fiber.Ctx) error {
	platform := models.Platform(c.Params("platform"))
	if !platform.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	authURL, err := h.s.AuthURL(platform, c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to build authorization URL",
		})
	}
	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := models.Platform(c.Params("platform"))

	if !platform.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	if err := h.s.Callback(c.Context(), platform, code, userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	return c.Redirect(h.cfg.FrontendURL + "/accounts")
}

func (h *PlatformHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *PlatformHandler) DisconnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	tokenID := c.QueryInt("id", 0)

	if err := h.s.Disconnect(c.Context(), userID, int64(tokenID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
