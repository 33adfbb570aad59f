package detectionHandler

import (
	"ProjectSpatial/internal/api/detection"
	detectionService "ProjectSpatial/internal/api/detection/service"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/internal/middleware"
	"ProjectSpatial/pkg/utils"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	srv.Get("/tasks", h.ListTasks)
	srv.Get("/catalog", h.GetCatalog)
	srv.Post("/detect", h.middleware.NewRateLimiter, h.Detect)

	sessions := srv.Group("/sessions")
	sessions.Post("", h.CreateSession)
	sessions.Get("/:id", h.GetSession)
	sessions.Patch("/:id", h.UpdateSession)
	sessions.Delete("/:id", h.DeleteSession)
	sessions.Post("/:id/reset", h.ResetSession)

	sessions.Put("/:id/prompt", h.UpdatePrompt)
	sessions.Get("/:id/prompt", h.PreviewPrompt)

	sessions.Post("/:id/strokes", h.AddStroke)
	sessions.Delete("/:id/strokes", h.ClearStrokes)
	sessions.Post("/:id/image", h.UploadImage)

	sessions.Use("/:id/stream", h.upgradeStream)
	sessions.Get("/:id/stream", websocket.New(h.handleStream))
	sessions.Post("/:id/relay", h.AttachRelay)
	sessions.Delete("/:id/relay", h.DetachRelay)

	sessions.Post("/:id/send", h.middleware.NewRateLimiter, h.Send)
	sessions.Get("/:id/result", h.GetResult)
}

func (h *DetectionHandler) sessionResponse(session entity.DetectionSession) detection.SessionResponse {
	return detection.SessionResponse{
		ID:             session.ID,
		Task:           session.Task,
		TaskLabel:      session.Task.String(),
		Prompt:         session.Prompt,
		Strokes:        session.Strokes,
		Temperature:    session.Temperature,
		HasImage:       session.ImageKey != "",
		StreamAttached: h.detectionService.IsRelayAttached(session.ID),
		HasLiveFrame:   h.detectionService.HasLiveFrame(session.ID),
		Sending:        h.detectionService.IsSending(session.ID),
		CreatedAt:      session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      session.UpdatedAt.Format(time.RFC3339),
	}
}
