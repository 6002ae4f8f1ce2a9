package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gamma-omg/profile-mcp/chat"
	"github.com/gamma-omg/profile-mcp/pipeline"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type chatService interface {
	Chat(ctx context.Context, sessionID, message string) (chat.Reply, error)
	End(sessionID string)
	Sessions() int
}

type chatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type chatController struct {
	log      *slog.Logger
	svc      chatService
	validate *validator.Validate
	docs     int
}

func NewAPI(svc chatService, docs int, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "profilebot",
		DisableStartupMessage: true,
		BodyLimit:             64 * 1024,
	})

	c := &chatController{
		log:      logger,
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		docs:     docs,
	}
	c.RegisterRoutes(app)

	return app
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Post("/chat", c.Chat)
	r.Delete("/chat/:id", c.EndSession)
}

func (c *chatController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":    "ok",
		"documents": c.docs,
		"sessions":  c.svc.Sessions(),
	})
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req chatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := c.validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := c.svc.Chat(ctx.UserContext(), req.SessionID, req.Message)
	switch {
	case err == nil:
		return ctx.JSON(res)
	case errors.Is(err, chat.ErrEmptyMessage):
		return ctx.Status(fiber.StatusBadRequest).JSON(res)
	case errors.Is(err, pipeline.ErrCapability):
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(res)
	default:
		c.log.Error("chat request failed", "error", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(res)
	}
}

func (c *chatController) EndSession(ctx *fiber.Ctx) error {
	c.svc.End(ctx.Params("id"))
	return ctx.SendStatus(fiber.StatusNoContent)
}
