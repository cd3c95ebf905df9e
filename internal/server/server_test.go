package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatarsync/avatarsync/internal/core/avatar"
	"github.com/avatarsync/avatarsync/internal/core/config"
	"github.com/avatarsync/avatarsync/internal/core/events/bus"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
	"github.com/avatarsync/avatarsync/internal/core/scene"
)

func serverFixture() (*Server, bus.Bus) {
	logger := log.NewNop()
	b := bus.New()
	l := NewLoop(config.Default().Server, scene.NewNode("world"), logger)
	return New(config.Default().Server, l, b, logger), b
}

func TestForwardDiagBroadcastsJSON(t *testing.T) {
	s, _ := serverFixture()

	c := &client{avatarID: "dr", send: make(chan []byte, 1)}
	s.hub.add(c)

	diag := avatar.DiagnosticEvent{
		AvatarID:   "dr",
		Position:   [3]float32{0, 0, -0.192},
		IsMoving:   true,
		ActiveKeys: []string{"KeyW"},
	}
	require.NoError(t, s.forwardDiag(bus.NewEvent(avatar.EventTypeMovementDiag, "test", diag)))

	frame := <-c.send
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frame, &decoded))
	require.Equal(t, "dr", decoded["avatarId"])
	require.Equal(t, true, decoded["isMoving"])
	require.Contains(t, decoded, "position")
	require.Contains(t, decoded, "velocity")
	require.Contains(t, decoded, "activeKeys")
}

func TestForwardDiagIgnoresForeignPayload(t *testing.T) {
	s, _ := serverFixture()
	require.NoError(t, s.forwardDiag(bus.NewEvent(avatar.EventTypeMovementDiag, "test", struct{}{})))
}

func TestBroadcastDropsWhenClientBufferFull(t *testing.T) {
	s, _ := serverFixture()

	c := &client{avatarID: "dr", send: make(chan []byte, 1)}
	s.hub.add(c)

	s.hub.broadcast([]byte("one"))
	s.hub.broadcast([]byte("two")) // dropped, must not block

	require.Equal(t, []byte("one"), <-c.send)
}

func TestHubRemoveIsIdempotent(t *testing.T) {
	s, _ := serverFixture()

	c := &client{avatarID: "dr", send: make(chan []byte, 1)}
	s.hub.add(c)
	require.Equal(t, 1, s.hub.count())

	s.hub.remove(c)
	s.hub.remove(c)
	require.Equal(t, 0, s.hub.count())
}

func TestWebSocketRequiresAvatarParam(t *testing.T) {
	s, _ := serverFixture()

	rec := httptest.NewRecorder()
	s.handleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocketRejectsUnknownAvatar(t *testing.T) {
	s, _ := serverFixture()

	rec := httptest.NewRecorder()
	s.handleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws?avatar=nobody", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), ErrUnknownAvatar.Error())
}

func TestKeyboardFrameDecoding(t *testing.T) {
	var frame keyboardFrame
	require.NoError(t, json.Unmarshal([]byte(`{"type":"down","code":"KeyW"}`), &frame))
	require.Equal(t, "down", frame.Type)
	require.Equal(t, "KeyW", frame.Code)
}
