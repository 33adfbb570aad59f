package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/gemini"
	"ProjectSpatial/pkg/log"
	"ProjectSpatial/pkg/response"
	"errors"
	"math"

	"golang.org/x/net/context"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

var errInvalidTemperature = errors.New("temperature must be within [0, 2]")

// InvocationConfig returns the model and thinking budget used for task. A nil
// budget leaves thinking unconfigured.
func InvocationConfig(task entity.DetectionTask, models gemini.Models) (string, *int32) {
	if task == entity.TaskBoundingBox3D {
		return models.Spatial3D, nil
	}
	budget := int32(0)
	return models.Default, &budget
}

func ValidTemperature(t float64) bool {
	return !math.IsNaN(t) && t >= MinTemperature && t <= MaxTemperature
}

func (s *detectionService) invoke(ctx context.Context, task entity.DetectionTask, payload entity.RawPayload, prompt string, temperature float64) (string, error) {
	if !ValidTemperature(temperature) {
		return "", response.Wrap(detection.ErrInvocationFailed, errInvalidTemperature)
	}

	model, thinking := InvocationConfig(task, s.gemini.Models())

	log.WithRequestID(ctx).WithFields(log.Fields{
		"task":        task.Slug(),
		"model":       model,
		"temperature": temperature,
		"image_bytes": len(payload.Data),
	}).Debug("[detectionService.invoke] calling model")

	text, err := s.gemini.GenerateContent(ctx, gemini.GenerateRequest{
		Model:          model,
		Image:          payload.Data,
		MIMEType:       payload.MIMEType,
		Prompt:         prompt,
		Temperature:    float32(temperature),
		ThinkingBudget: thinking,
	})
	if err != nil {
		return "", response.Wrap(detection.ErrInvocationFailed, err)
	}

	return text, nil
}
