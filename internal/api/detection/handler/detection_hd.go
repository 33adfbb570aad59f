package detectionHandler

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	contextPkg "ProjectSpatial/pkg/context"
	"ProjectSpatial/pkg/handlerUtil"
	"ProjectSpatial/pkg/log"
	"ProjectSpatial/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) ListTasks(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	tasks := make([]detection.TaskResponse, 0, len(entity.AllTasks))
	for _, task := range entity.AllTasks {
		tasks = append(tasks, detection.TaskResponse{
			Slug:  task.Slug(),
			Label: task.String(),
		})
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, tasks)
}

func (h *DetectionHandler) GetCatalog(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.detectionService.Catalog(ctx.Query("category")))
}

// Send has no request timeout: once admitted the model call runs to
// completion and its result is published even if the client is gone.
func (h *DetectionHandler) Send(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing send request")

	result, err := h.detectionService.Send(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "send")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.NewResultResponse(result))
}

func (h *DetectionHandler) GetResult(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	result, err := h.detectionService.GetResult(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_result")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.NewResultResponse(result))
	}
}

func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing one-shot detect request")

	var req detection.DetectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	data, err := h.readImage(ctx)
	if err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.detectionService.Detect(c, req, data)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.NewResultResponse(result))
}

func (h *DetectionHandler) readImage(ctx *fiber.Ctx) ([]byte, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		return nil, utils.ErrNoFile
	}

	if err := h.utils.ValidateImageFile(file); err != nil {
		return nil, err
	}

	data, err := h.utils.ReadFile(file)
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > h.utils.MaxFileSize() {
		return nil, utils.ErrFileTooLarge
	}

	return data, nil
}
