package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/log"
	"ProjectSpatial/pkg/response"
	"context"
	"errors"
	"time"
)

// Send runs the detection pipeline for the session and publishes the result.
// It returns ErrRequestInFlight immediately when the session already has a
// request outstanding. Once admitted, the call is not cancelled by ctx.
func (s *detectionService) Send(ctx context.Context, id string) (entity.DetectionResult, error) {
	requestID, err := s.utils.NewULIDFromTimestamp(s.now())
	if err != nil {
		return nil, response.Wrap(detection.ErrInternalServerError, err)
	}

	pending, ok := s.inflight.tryAcquire(pendingRequest{
		ID:        requestID,
		SessionID: id,
		StartedAt: s.now(),
	})
	if !ok {
		log.WithRequestID(ctx).Warn("[detectionService.Send] request already in flight")
		return nil, detection.ErrRequestInFlight
	}
	defer s.inflight.release(pending)

	ctx = context.WithoutCancel(ctx)

	session, err := s.repository.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, detection.ErrSessionNotFound) {
			s.inflight.release(pending)
			s.inflight.forget(id)
		}
		return nil, err
	}

	source, err := s.visualSource(ctx, session)
	if err != nil {
		return nil, err
	}

	result, err := s.run(ctx, session.Task, source, session.Strokes, session.Prompt, session.Temperature)
	if err != nil {
		log.WithRequestID(ctx).WithFields(log.Fields{
			"task":     session.Task.Slug(),
			"error":    err.Error(),
			"duration": time.Since(pending.StartedAt).String(),
		}).Warn("[detectionService.Send] detection failed, keeping previous result")
		return nil, err
	}

	if err := s.repository.SaveResult(ctx, id, result); err != nil {
		return nil, err
	}

	log.WithRequestID(ctx).WithFields(log.Fields{
		"task":     session.Task.Slug(),
		"items":    result.Len(),
		"duration": time.Since(pending.StartedAt).String(),
	}).Info("[detectionService.Send] detection result published")

	return result, nil
}

// Detect runs the pipeline once on an uploaded image without a session.
func (s *detectionService) Detect(ctx context.Context, req detection.DetectRequest, image []byte) (entity.DetectionResult, error) {
	task, err := entity.ParseDetectionTask(req.Task)
	if err != nil {
		return nil, response.Wrap(detection.ErrUnknownTask, err)
	}

	tpl := entity.DefaultPromptTemplate()
	if req.Subject != "" {
		tpl.SetSubject(task, req.Subject)
	}
	if req.Target != "" {
		tpl.Target = req.Target
	}
	if req.Language != "" {
		tpl.Language = req.Language
	}
	tpl.LabelInstruction = req.LabelInstruction
	tpl.CatalogCategory = req.CatalogCategory

	temperature := entity.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	return s.run(context.WithoutCancel(ctx), task, entity.VisualSource{Image: image}, nil, tpl, temperature)
}

func (s *detectionService) run(
	ctx context.Context,
	task entity.DetectionTask,
	source entity.VisualSource,
	strokes []entity.AnnotationStroke,
	tpl entity.PromptTemplate,
	temperature float64,
) (entity.DetectionResult, error) {
	payload, err := PreparePayload(source, strokes)
	if err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(task, tpl)

	text, err := s.invoke(ctx, task, payload, prompt, temperature)
	if err != nil {
		return nil, err
	}

	result, err := NormalizeResponse(task, text)
	if err != nil {
		log.WithRequestID(ctx).WithFields(log.Fields{
			"task":     task.Slug(),
			"response": text,
		}).Debug("[detectionService.run] unparseable model response")
		return nil, err
	}

	return result, nil
}

func (s *detectionService) visualSource(ctx context.Context, session entity.DetectionSession) (entity.VisualSource, error) {
	if frame, ok := s.frames.Latest(session.ID); ok {
		return entity.VisualSource{LiveFrame: frame.Data}, nil
	}

	if session.ImageKey == "" {
		return entity.VisualSource{}, nil
	}

	data, err := s.s3.GetObject(ctx, session.ImageKey)
	if err != nil {
		return entity.VisualSource{}, response.Wrap(detection.ErrPreparationFailed, err)
	}

	return entity.VisualSource{Image: data}, nil
}

func (s *detectionService) IsSending(sessionID string) bool {
	_, ok := s.inflight.pending(sessionID)
	return ok
}

func (s *detectionService) GetResult(ctx context.Context, id string) (entity.DetectionResult, error) {
	if _, err := s.repository.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.repository.GetResult(ctx, id)
}
