package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/gemini"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boxesResponse = "```json\n[{\"box_2d\":[100,200,300,600],\"label\":\"cup\"}]\n```"

func newSessionWithImage(t *testing.T, env *testEnv, req detection.CreateSessionRequest) entity.DetectionSession {
	t.Helper()

	ctx := context.Background()
	session, err := env.svc.CreateSession(ctx, req)
	require.NoError(t, err)

	session, err = env.svc.UploadImage(ctx, session.ID, encodePNG(t, 320, 160, color.White))
	require.NoError(t, err)
	return session
}

func TestSend_PublishesResult(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	env.gemini.respond(boxesResponse, nil)

	result, err := env.svc.Send(context.Background(), session.ID)
	require.NoError(t, err)

	boxes, ok := result.(entity.BoundingBoxes2D)
	require.True(t, ok)
	require.Len(t, boxes, 1)
	assert.Equal(t, "cup", boxes[0].Label)

	stored, err := env.svc.GetResult(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, result, stored)

	req := env.gemini.lastRequest()
	assert.Equal(t, gemini.DefaultModelName, req.Model)
	require.NotNil(t, req.ThinkingBudget)
	assert.Equal(t, int32(0), *req.ThinkingBudget)
	assert.Equal(t, float32(entity.DefaultTemperature), req.Temperature)
	assert.Equal(t, PayloadMIMEType, req.MIMEType)
	assert.Equal(t, BuildPrompt(entity.TaskBoundingBox2D, session.Prompt), req.Prompt)
	assert.False(t, env.svc.IsSending(session.ID))
}

func TestSend_BoundingBox3DUsesSpatialModelWithoutThinking(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{Task: "3d-bounding-boxes"})
	env.gemini.respond(`[{"box_3d":[0,0,0,1,1,1,0,0,90],"label":"table"}]`, nil)

	result, err := env.svc.Send(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskBoundingBox3D, result.Task())

	req := env.gemini.lastRequest()
	assert.Equal(t, gemini.Default3DModelName, req.Model)
	assert.Nil(t, req.ThinkingBudget)
}

func TestSend_InFlightGuardAllowsOneInvocation(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	env.gemini.respond(boxesResponse, nil)
	env.gemini.block = make(chan struct{})

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = env.svc.Send(context.Background(), session.ID)
	}()

	select {
	case <-env.gemini.started:
	case <-time.After(5 * time.Second):
		t.Fatal("model was never invoked")
	}

	assert.True(t, env.svc.IsSending(session.ID))

	_, err := env.svc.Send(context.Background(), session.ID)
	assert.ErrorIs(t, err, detection.ErrRequestInFlight)

	close(env.gemini.block)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, 1, env.gemini.calls())
	assert.False(t, env.svc.IsSending(session.ID))
}

func TestSend_GuardIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	first := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	second := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	env.gemini.respond(boxesResponse, nil)
	env.gemini.block = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = env.svc.Send(context.Background(), first.ID)
	}()
	<-env.gemini.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = env.svc.Send(context.Background(), second.ID)
	}()

	select {
	case <-env.gemini.started:
	case <-time.After(5 * time.Second):
		t.Fatal("second session was blocked by the first")
	}

	close(env.gemini.block)
	wg.Wait()
	assert.Equal(t, 2, env.gemini.calls())
}

func TestSend_FailuresKeepPreviousResult(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	ctx := context.Background()

	env.gemini.respond(boxesResponse, nil)
	previous, err := env.svc.Send(ctx, session.ID)
	require.NoError(t, err)

	env.gemini.respond("", errors.New("connection reset"))
	_, err = env.svc.Send(ctx, session.ID)
	assert.ErrorIs(t, err, detection.ErrInvocationFailed)

	env.gemini.respond(`[{"box_2d":[1,2,3,4],"label":"ok"},{"box_2d":[1,2,3,4]}]`, nil)
	_, err = env.svc.Send(ctx, session.ID)
	assert.ErrorIs(t, err, detection.ErrParseFailed)

	stored, err := env.svc.GetResult(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, previous, stored)
	assert.False(t, env.svc.IsSending(session.ID))

	env.gemini.respond(`[{"box_2d":[0,0,1000,1000],"label":"all"}]`, nil)
	replaced, err := env.svc.Send(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "all", replaced.(entity.BoundingBoxes2D)[0].Label)
	assert.Equal(t, 4, env.gemini.calls())
}

func TestSend_NoVisualSource(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.svc.CreateSession(context.Background(), detection.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = env.svc.Send(context.Background(), session.ID)
	assert.ErrorIs(t, err, detection.ErrPreparationFailed)
	assert.Equal(t, 0, env.gemini.calls())
	assert.False(t, env.svc.IsSending(session.ID))

	_, err = env.svc.GetResult(context.Background(), session.ID)
	assert.ErrorIs(t, err, detection.ErrResultNotFound)
}

func TestSend_InvalidTemperatureIsInvocationError(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{})

	session.Temperature = 2.5
	require.NoError(t, env.repo.SaveSession(context.Background(), session))

	_, err := env.svc.Send(context.Background(), session.ID)
	assert.ErrorIs(t, err, detection.ErrInvocationFailed)
	assert.Equal(t, 0, env.gemini.calls())
}

func TestSend_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Send(context.Background(), "missing")
	assert.ErrorIs(t, err, detection.ErrSessionNotFound)

	_, ok := env.svc.inflight.pending("missing")
	assert.False(t, ok)
	assert.Empty(t, env.svc.inflight.slots)
}

func TestSend_LiveFrameTakesPrecedence(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	env.gemini.respond("[]", nil)

	env.svc.PublishFrame(session.ID, encodePNG(t, 100, 300, color.Black))

	_, err := env.svc.Send(context.Background(), session.ID)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(env.gemini.lastRequest().Image))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 213, 640), img.Bounds())
}

func TestSend_NotCancelledByCaller(t *testing.T) {
	env := newTestEnv(t)
	session := newSessionWithImage(t, env, detection.CreateSessionRequest{})
	env.gemini.respond(boxesResponse, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.Send(ctx, session.ID)
	require.NoError(t, err)

	env.gemini.mu.Lock()
	defer env.gemini.mu.Unlock()
	assert.NoError(t, env.gemini.ctxErrs[0])
}

func TestDetect_OneShot(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.respond(`[{"point":[500,250],"label":"knob"}]`, nil)

	temperature := 1.2
	result, err := env.svc.Detect(context.Background(), detection.DetectRequest{
		Task:        "points",
		Subject:     "door knobs",
		Temperature: &temperature,
	}, encodePNG(t, 64, 64, color.White))
	require.NoError(t, err)

	points := result.(entity.Points)
	require.Len(t, points, 1)
	assert.InDelta(t, 0.25, points[0].X, 1e-9)

	req := env.gemini.lastRequest()
	assert.Contains(t, req.Prompt, "Point to the door knobs")
	assert.InDelta(t, 1.2, float64(req.Temperature), 1e-6)
}

func TestDetect_UnknownTask(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Detect(context.Background(), detection.DetectRequest{Task: "polygons"}, encodePNG(t, 8, 8, color.White))
	assert.ErrorIs(t, err, detection.ErrUnknownTask)
	assert.Equal(t, 0, env.gemini.calls())
}

func TestInvocationConfig(t *testing.T) {
	models := gemini.Models{Default: "flash", Spatial3D: "older-flash"}

	for _, task := range []entity.DetectionTask{entity.TaskBoundingBox2D, entity.TaskSegmentationMask, entity.TaskPoint} {
		model, budget := InvocationConfig(task, models)
		assert.Equal(t, "flash", model)
		require.NotNil(t, budget)
		assert.Equal(t, int32(0), *budget)
	}

	model, budget := InvocationConfig(entity.TaskBoundingBox3D, models)
	assert.Equal(t, "older-flash", model)
	assert.Nil(t, budget)
}
