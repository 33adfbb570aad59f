package detectionRepository

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/log"
	redisPkg "ProjectSpatial/pkg/redis"
	"ProjectSpatial/pkg/response"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (r *repository) SaveSession(ctx context.Context, session entity.DetectionSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		r.log.WithFields(log.Fields{
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("[detectionRepository.SaveSession] failed to encode session")
		return response.Wrap(detection.ErrInternalServerError, err)
	}

	if err := r.redis.Set(ctx, sessionKey(session.ID), data, r.ttl); err != nil {
		r.log.WithFields(log.Fields{
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("[detectionRepository.SaveSession] failed to store session")
		return response.Wrap(detection.ErrInternalServerError, err)
	}

	return nil
}

func (r *repository) GetSession(ctx context.Context, id string) (entity.DetectionSession, error) {
	data, err := r.redis.Get(ctx, sessionKey(id))
	if errors.Is(err, redisPkg.ErrKeyNotFound) {
		return entity.DetectionSession{}, detection.ErrSessionNotFound
	}
	if err != nil {
		return entity.DetectionSession{}, response.Wrap(detection.ErrInternalServerError, err)
	}

	var session entity.DetectionSession
	if err := json.Unmarshal(data, &session); err != nil {
		r.log.WithFields(log.Fields{
			"session_id": id,
			"error":      err.Error(),
		}).Error("[detectionRepository.GetSession] stored session is corrupt")
		return entity.DetectionSession{}, response.Wrap(detection.ErrInternalServerError, err)
	}

	if session.Strokes == nil {
		session.Strokes = []entity.AnnotationStroke{}
	}
	if session.Prompt.Parts == nil {
		session.Prompt.Parts = entity.DefaultPromptParts()
	}
	if session.Prompt.Custom == nil {
		session.Prompt.Custom = map[entity.DetectionTask]string{}
	}

	return session, nil
}

func (r *repository) DeleteSession(ctx context.Context, id string) error {
	if err := r.redis.Delete(ctx, sessionKey(id), resultKey(id)); err != nil {
		return response.Wrap(detection.ErrInternalServerError, err)
	}
	return nil
}
