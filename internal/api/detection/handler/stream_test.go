package detectionHandler_test

import (
	"ProjectSpatial/internal/api/detection"
	"bytes"
	"image"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveServer struct {
	addr   string
	client *http.Client
}

type streamReply struct {
	Task  string `json:"task"`
	Count int    `json:"count"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func serve(t *testing.T, app *fiber.App) *liveServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(2 * time.Second) })

	return &liveServer{addr: ln.Addr().String(), client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *liveServer) call(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, "http://"+s.addr+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *liveServer) createSession(t *testing.T) string {
	t.Helper()

	resp, data := s.call(t, http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte("{}")), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var session detection.SessionResponse
	require.NoError(t, json.Unmarshal(data, &session))
	return session.ID
}

func (s *liveServer) session(t *testing.T, id string) detection.SessionResponse {
	t.Helper()

	resp, data := s.call(t, http.MethodGet, "/api/v1/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var session detection.SessionResponse
	require.NoError(t, json.Unmarshal(data, &session))
	return session
}

func (s *liveServer) upload(t *testing.T, id string, w, h int) {
	t.Helper()

	body, contentType := multipartImage(t, nil, pngBytes(t, w, h), "image/png")
	resp, data := s.call(t, http.MethodPost, "/api/v1/sessions/"+id+"/image", body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
}

func (s *liveServer) send(t *testing.T, id string) {
	t.Helper()

	resp, data := s.call(t, http.MethodPost, "/api/v1/sessions/"+id+"/send", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
}

func (s *liveServer) dial(t *testing.T, id string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+s.addr+"/api/v1/sessions/"+id+"/stream", nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *liveServer) waitLiveFrame(t *testing.T, id string, want bool) {
	t.Helper()

	assert.Eventually(t, func() bool {
		return s.session(t, id).HasLiveFrame == want
	}, 3*time.Second, 20*time.Millisecond)
}

func readReply(t *testing.T, conn *websocket.Conn) streamReply {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var reply streamReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func closeStream(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
	conn.Close()
}

func TestStream_UnknownSession(t *testing.T) {
	app, _ := newTestApp(t)
	srv := serve(t, app)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.addr+"/api/v1/sessions/missing/stream", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStream_FramesAndCommands(t *testing.T) {
	app, g := newTestApp(t)
	g.text = `[{"box_2d":[0,0,500,500],"label":"cup"}]`
	srv := serve(t, app)

	id := srv.createSession(t)
	conn := srv.dial(t, id)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t, 10, 40)))
	srv.waitLiveFrame(t, id, true)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	reply := readReply(t, conn)
	assert.Equal(t, "VALIDATION_ERROR", reply.Code)
	assert.Equal(t, "unknown command", reply.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"stop"}`)))
	assert.Equal(t, "VALIDATION_ERROR", readReply(t, conn).Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"send"}`)))
	reply = readReply(t, conn)
	assert.Empty(t, reply.Code)
	assert.Equal(t, "2d-bounding-boxes", reply.Task)
	assert.Equal(t, 1, reply.Count)

	// frames are scaled so the long side is 640
	assert.Equal(t, image.Pt(160, 640), g.lastImageSize(t))

	resp, data := srv.call(t, http.MethodGet, "/api/v1/sessions/"+id+"/result", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))
}

func TestStream_SendWhileInFlight(t *testing.T) {
	app, g := newTestApp(t)
	g.text = `[{"box_2d":[0,0,500,500],"label":"cup"}]`
	g.started = make(chan struct{}, 1)
	g.block = make(chan struct{})
	srv := serve(t, app)

	id := srv.createSession(t)
	srv.upload(t, id, 32, 16)
	conn := srv.dial(t, id)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"send"}`)))

	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		close(g.block)
		t.Fatal("model was never invoked")
	}

	assert.True(t, srv.session(t, id).Sending)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"send"}`)))
	reply := readReply(t, conn)
	assert.Equal(t, "REQUEST_IN_FLIGHT", reply.Code)

	close(g.block)

	reply = readReply(t, conn)
	assert.Empty(t, reply.Code)
	assert.Equal(t, 1, reply.Count)

	g.mu.Lock()
	calls := g.calls
	g.mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.False(t, srv.session(t, id).Sending)
}

func TestStream_UploadedImageReplacesStaleFrame(t *testing.T) {
	app, g := newTestApp(t)
	g.text = `[]`
	srv := serve(t, app)

	id := srv.createSession(t)
	conn := srv.dial(t, id)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t, 10, 40)))
	srv.waitLiveFrame(t, id, true)

	srv.upload(t, id, 32, 16)
	assert.False(t, srv.session(t, id).HasLiveFrame)

	srv.send(t, id)
	assert.Equal(t, image.Pt(640, 320), g.lastImageSize(t))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t, 10, 40)))
	srv.waitLiveFrame(t, id, true)

	srv.send(t, id)
	assert.Equal(t, image.Pt(160, 640), g.lastImageSize(t))

	closeStream(t, conn)
	srv.waitLiveFrame(t, id, false)

	srv.send(t, id)
	assert.Equal(t, image.Pt(640, 320), g.lastImageSize(t))
}
