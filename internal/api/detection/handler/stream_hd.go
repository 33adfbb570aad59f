package detectionHandler

import (
	"ProjectSpatial/internal/api/detection"
	contextPkg "ProjectSpatial/pkg/context"
	"ProjectSpatial/pkg/handlerUtil"
	"ProjectSpatial/pkg/log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

const streamReadTimeout = 60 * time.Second

type streamError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *DetectionHandler) upgradeStream(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	if _, err := h.detectionService.GetSession(c, ctx.Params("id")); err != nil {
		return handlerUtil.New(h.log).Handle(ctx, requestID, err, ctx.Path(), "open_stream")
	}

	ctx.Locals("request_id", requestID)
	return ctx.Next()
}

// handleStream treats binary messages as live frames and text messages as
// commands. Results of a send command are written back on the same socket.
func (h *DetectionHandler) handleStream(conn *websocket.Conn) {
	sessionID := conn.Params("id")
	requestID, _ := conn.Locals("request_id").(string)

	fields := log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
	}

	h.log.WithFields(fields).Info("Live stream client connected")

	// sends outlive the read loop; the connection is released only after
	// they have written their reply.
	var sends sync.WaitGroup
	defer func() {
		sends.Wait()
		h.detectionService.EndStream(sessionID)
		h.log.WithFields(fields).Info("Live stream client disconnected")
	}()

	conn.SetReadLimit(h.utils.MaxFileSize())

	var writeMu sync.Mutex
	writeJSON := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()

		if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			return
		}
		if err := conn.WriteJSON(v); err != nil {
			h.log.WithFields(fields).Errorf("Error writing stream response: %v", err)
		}
	}

	conn.SetPingHandler(func(data string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.WithFields(fields).Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	ctx := contextPkg.WithSessionID(contextPkg.WithRequestID(context.Background(), requestID), sessionID)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			break
		}

		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(fields).Errorf("Live stream error: %v", err)
			}
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			h.detectionService.PublishFrame(sessionID, message)
		case websocket.TextMessage:
			var cmd detection.StreamCommand
			if err := jsoniter.Unmarshal(message, &cmd); err != nil || h.validator.Struct(cmd) != nil {
				writeJSON(streamError{Error: "unknown command", Code: "VALIDATION_ERROR"})
				continue
			}

			sends.Add(1)
			go func() {
				defer sends.Done()
				result, err := h.detectionService.Send(ctx, sessionID)
				if err != nil {
					code, _ := detection.ErrorCode(err)
					writeJSON(streamError{Error: err.Error(), Code: code})
					return
				}
				writeJSON(detection.NewResultResponse(result))
			}()
		}
	}
}
