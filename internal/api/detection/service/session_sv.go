package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/log"
	"ProjectSpatial/pkg/response"
	"ProjectSpatial/pkg/utils"
	"fmt"

	"golang.org/x/net/context"
)

func (s *detectionService) CreateSession(ctx context.Context, req detection.CreateSessionRequest) (entity.DetectionSession, error) {
	now := s.now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return entity.DetectionSession{}, response.Wrap(detection.ErrInternalServerError, err)
	}

	session := entity.NewDetectionSession(id, now)

	if req.Task != "" {
		task, err := entity.ParseDetectionTask(req.Task)
		if err != nil {
			return entity.DetectionSession{}, response.Wrap(detection.ErrUnknownTask, err)
		}
		session.Task = task
	}

	if req.Hash != "" {
		task, param, ok := entity.TaskFromHash(req.Hash)
		switch {
		case ok:
			session.Task = task
		case param != "":
			log.WithRequestID(ctx).WithFields(log.Fields{
				"hash": req.Hash,
				"task": param,
			}).Warn("[detectionService.CreateSession] unknown task in hash, keeping current task")
		}
	}

	if req.Temperature != nil {
		session.Temperature = *req.Temperature
	}

	if err := s.repository.SaveSession(ctx, session); err != nil {
		return entity.DetectionSession{}, err
	}

	log.WithRequestID(ctx).WithFields(log.Fields{
		"session_id": session.ID,
		"task":       session.Task.Slug(),
	}).Info("[detectionService.CreateSession] session created")

	return session, nil
}

func (s *detectionService) GetSession(ctx context.Context, id string) (entity.DetectionSession, error) {
	return s.repository.GetSession(ctx, id)
}

func (s *detectionService) UpdateSession(ctx context.Context, id string, req detection.UpdateSessionRequest) (entity.DetectionSession, error) {
	return s.mutate(ctx, id, func(session *entity.DetectionSession) error {
		if req.Task != nil {
			task, err := entity.ParseDetectionTask(*req.Task)
			if err != nil {
				return response.Wrap(detection.ErrUnknownTask, err)
			}
			session.Task = task
		}
		if req.Temperature != nil {
			session.Temperature = *req.Temperature
		}
		return nil
	})
}

func (s *detectionService) DeleteSession(ctx context.Context, id string) error {
	session, err := s.repository.GetSession(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repository.DeleteSession(ctx, id); err != nil {
		return err
	}

	s.dropImage(ctx, session.ImageKey)
	s.relay.Detach(id)
	s.frames.Drop(id)
	s.inflight.forget(id)

	log.WithRequestID(ctx).Info("[detectionService.DeleteSession] session deleted")
	return nil
}

// ResetSession clears strokes, the current result and every image source.
// Task, prompt and temperature are kept.
func (s *detectionService) ResetSession(ctx context.Context, id string) (entity.DetectionSession, error) {
	var oldKey string
	session, err := s.mutate(ctx, id, func(session *entity.DetectionSession) error {
		oldKey = session.ImageKey
		session.Strokes = []entity.AnnotationStroke{}
		session.ImageKey = ""
		session.ImageType = ""
		return nil
	})
	if err != nil {
		return entity.DetectionSession{}, err
	}

	if err := s.repository.DeleteResult(ctx, id); err != nil {
		return entity.DetectionSession{}, err
	}

	s.dropImage(ctx, oldKey)
	s.relay.Detach(id)
	s.frames.Drop(id)

	return session, nil
}

func (s *detectionService) UpdatePrompt(ctx context.Context, id string, req detection.UpdatePromptRequest) (entity.DetectionSession, error) {
	return s.mutate(ctx, id, func(session *entity.DetectionSession) error {
		task := session.Task
		if req.Task != "" {
			parsed, err := entity.ParseDetectionTask(req.Task)
			if err != nil {
				return response.Wrap(detection.ErrUnknownTask, err)
			}
			task = parsed
		}

		tpl := session.Prompt.Clone()
		if len(req.Parts) > 0 {
			tpl.Parts[task] = append([]string(nil), req.Parts...)
		}
		if req.Subject != nil {
			tpl.SetSubject(task, *req.Subject)
		}
		if req.Target != nil {
			tpl.Target = *req.Target
		}
		if req.LabelInstruction != nil {
			tpl.LabelInstruction = *req.LabelInstruction
		}
		if req.Language != nil {
			tpl.Language = *req.Language
		}
		if req.CatalogCategory != nil {
			tpl.CatalogCategory = *req.CatalogCategory
		}
		if req.Custom != nil {
			if *req.Custom == "" {
				delete(tpl.Custom, task)
			} else {
				tpl.Custom[task] = *req.Custom
			}
		}

		session.Prompt = tpl
		return nil
	})
}

// PreviewPrompt shows the exact text that Send would use. A failed token
// count is logged and reported as zero.
func (s *detectionService) PreviewPrompt(ctx context.Context, id string) (detection.PromptPreviewResponse, error) {
	session, err := s.repository.GetSession(ctx, id)
	if err != nil {
		return detection.PromptPreviewResponse{}, err
	}

	prompt := s.buildPrompt(session.Task, session.Prompt)
	model, _ := InvocationConfig(session.Task, s.gemini.Models())

	tokens, err := s.gemini.CountTokens(ctx, model, prompt)
	if err != nil {
		log.WithRequestID(ctx).WithFields(log.Fields{
			"model": model,
			"error": err.Error(),
		}).Warn("[detectionService.PreviewPrompt] failed to count tokens")
		tokens = 0
	}

	return detection.PromptPreviewResponse{
		Task:       session.Task,
		Model:      model,
		Prompt:     prompt,
		TokenCount: tokens,
	}, nil
}

func (s *detectionService) AddStroke(ctx context.Context, id string, req detection.AddStrokeRequest) (entity.DetectionSession, error) {
	stroke := entity.AnnotationStroke{
		Points: make([]entity.NormalizedPoint, 0, len(req.Points)),
		Color:  req.Color,
	}
	for _, p := range req.Points {
		stroke.Points = append(stroke.Points, entity.NormalizedPoint(p))
	}

	return s.mutate(ctx, id, func(session *entity.DetectionSession) error {
		session.Strokes = append(session.Strokes, stroke)
		return nil
	})
}

func (s *detectionService) ClearStrokes(ctx context.Context, id string) (entity.DetectionSession, error) {
	return s.mutate(ctx, id, func(session *entity.DetectionSession) error {
		session.Strokes = []entity.AnnotationStroke{}
		return nil
	})
}

// UploadImage stores data as the session's static image, replacing any
// previous one. A held live frame is dropped so the new image is what gets
// sent until the stream delivers another frame.
func (s *detectionService) UploadImage(ctx context.Context, id string, data []byte) (entity.DetectionSession, error) {
	if _, err := s.repository.GetSession(ctx, id); err != nil {
		return entity.DetectionSession{}, err
	}

	_, format, err := utils.DecodeImage(data)
	if err != nil {
		return entity.DetectionSession{}, response.Wrap(detection.ErrInvalidImage, err)
	}

	objectID, err := s.utils.NewULIDFromTimestamp(s.now())
	if err != nil {
		return entity.DetectionSession{}, response.Wrap(detection.ErrInternalServerError, err)
	}

	key := fmt.Sprintf("sessions/%s/%s.%s", id, objectID, format)
	contentType := "image/" + format
	if _, err := s.s3.PutObject(ctx, key, data, contentType); err != nil {
		log.WithRequestID(ctx).WithFields(log.Fields{
			"key":   key,
			"error": err.Error(),
		}).Error("[detectionService.UploadImage] failed to store image")
		return entity.DetectionSession{}, response.Wrap(detection.ErrInternalServerError, err)
	}

	var oldKey string
	session, err := s.mutate(ctx, id, func(session *entity.DetectionSession) error {
		oldKey = session.ImageKey
		session.ImageKey = key
		session.ImageType = contentType
		return nil
	})
	if err != nil {
		s.dropImage(ctx, key)
		return entity.DetectionSession{}, err
	}

	s.dropImage(ctx, oldKey)
	s.frames.Drop(id)
	return session, nil
}

func (s *detectionService) PublishFrame(sessionID string, frame []byte) {
	s.frames.Publish(sessionID, frame)
}

// EndStream forgets the last live frame once the session's stream is gone.
func (s *detectionService) EndStream(sessionID string) {
	s.frames.Drop(sessionID)
}

func (s *detectionService) HasLiveFrame(sessionID string) bool {
	_, ok := s.frames.Latest(sessionID)
	return ok
}

func (s *detectionService) AttachRelay(ctx context.Context, id string, url string) error {
	if _, err := s.repository.GetSession(ctx, id); err != nil {
		return err
	}

	if err := s.relay.Attach(id, url); err != nil {
		return response.Wrap(detection.ErrRelayFailed, err)
	}
	return nil
}

func (s *detectionService) DetachRelay(ctx context.Context, id string) error {
	if _, err := s.repository.GetSession(ctx, id); err != nil {
		return err
	}

	s.relay.Detach(id)
	s.frames.Drop(id)
	return nil
}

func (s *detectionService) IsRelayAttached(sessionID string) bool {
	return s.relay.IsAttached(sessionID)
}

func (s *detectionService) mutate(ctx context.Context, id string, fn func(session *entity.DetectionSession) error) (entity.DetectionSession, error) {
	session, err := s.repository.GetSession(ctx, id)
	if err != nil {
		return entity.DetectionSession{}, err
	}

	if err := fn(&session); err != nil {
		return entity.DetectionSession{}, err
	}

	session.UpdatedAt = s.now()
	if err := s.repository.SaveSession(ctx, session); err != nil {
		return entity.DetectionSession{}, err
	}

	return session, nil
}

func (s *detectionService) dropImage(ctx context.Context, key string) {
	if key == "" {
		return
	}

	if err := s.s3.DeleteObject(ctx, key); err != nil {
		log.WithRequestID(ctx).WithFields(log.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("[detectionService.dropImage] failed to delete image")
	}
}
