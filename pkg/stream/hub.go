package stream

import (
	"sync"
	"time"
)

// Frame is the most recent still received from a session's live stream.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

type IFrameHub interface {
	Publish(sessionID string, data []byte)
	Latest(sessionID string) (Frame, bool)
	Drop(sessionID string)
}

type frameHub struct {
	mu     sync.RWMutex
	frames map[string]Frame
	now    func() time.Time
}

func NewFrameHub() IFrameHub {
	return &frameHub{
		frames: make(map[string]Frame),
		now:    time.Now,
	}
}

// Publish keeps only the newest frame per session. Empty frames are ignored.
func (h *frameHub) Publish(sessionID string, data []byte) {
	if len(data) == 0 {
		return
	}

	frame := Frame{
		Data:       append([]byte(nil), data...),
		ReceivedAt: h.now(),
	}

	h.mu.Lock()
	h.frames[sessionID] = frame
	h.mu.Unlock()
}

func (h *frameHub) Latest(sessionID string) (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frame, ok := h.frames[sessionID]
	return frame, ok
}

func (h *frameHub) Drop(sessionID string) {
	h.mu.Lock()
	delete(h.frames, sessionID)
	h.mu.Unlock()
}
