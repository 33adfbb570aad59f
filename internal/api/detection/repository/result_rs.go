package detectionRepository

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/log"
	redisPkg "ProjectSpatial/pkg/redis"
	"ProjectSpatial/pkg/response"
	"errors"

	"golang.org/x/net/context"
)

// SaveResult replaces the session's current result in a single write.
func (r *repository) SaveResult(ctx context.Context, sessionID string, result entity.DetectionResult) error {
	data, err := entity.MarshalResult(result)
	if err != nil {
		return response.Wrap(detection.ErrInternalServerError, err)
	}

	if err := r.redis.Set(ctx, resultKey(sessionID), data, r.ttl); err != nil {
		r.log.WithFields(log.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("[detectionRepository.SaveResult] failed to store result")
		return response.Wrap(detection.ErrInternalServerError, err)
	}

	return nil
}

func (r *repository) GetResult(ctx context.Context, sessionID string) (entity.DetectionResult, error) {
	data, err := r.redis.Get(ctx, resultKey(sessionID))
	if errors.Is(err, redisPkg.ErrKeyNotFound) {
		return nil, detection.ErrResultNotFound
	}
	if err != nil {
		return nil, response.Wrap(detection.ErrInternalServerError, err)
	}

	result, err := entity.UnmarshalResult(data)
	if err != nil {
		return nil, response.Wrap(detection.ErrInternalServerError, err)
	}

	return result, nil
}

func (r *repository) DeleteResult(ctx context.Context, sessionID string) error {
	if err := r.redis.Delete(ctx, resultKey(sessionID)); err != nil {
		return response.Wrap(detection.ErrInternalServerError, err)
	}
	return nil
}
