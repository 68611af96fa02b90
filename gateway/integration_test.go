package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/logger"
	"voxgate/backend/query"
	storemodels "voxgate/backend/store/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a minimal gin engine exposing the WebSocket upgrade
// route behind a real httptest.Server, mirroring spec §8's end-to-end
// scenarios.
func newTestServer(t *testing.T, store SessionStore, verifier service.Verifier) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline := newTestPipeline(nil, &fakeResolver{answer: "it's time", intent: query.IntentTime}, &fakeTTS{audio: []byte("mp3-bytes")}, store)
	registry := NewRegistry()
	acceptor := NewAcceptor(verifier, store, pipeline, registry, false, 64, logger.New(logger.DefaultConfig()))

	engine := gin.New()
	engine.GET("/", func(c *gin.Context) { acceptor.ServeWs(c) })

	server := httptest.NewServer(engine)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return server, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestIntegration_TextHappyPath(t *testing.T) {
	store := newFakeStore()
	store.mu.Lock()
	store.sessions["S1"] = storemodels.ChatSession{ID: "S1", UserID: "u1"}
	store.mu.Unlock()

	verifier := &fakeVerifier{identities: map[string]service.Identity{"good-token": {UserID: "u1", Role: service.RoleUser}}}
	server, wsURL := newTestServer(t, store, verifier)
	defer server.Close()

	conn := dial(t, wsURL+"?token=good-token")
	defer conn.Close()

	established := readFrame(t, conn)
	require.Equal(t, "connection_established", established["type"])
	require.Equal(t, true, established["authenticated"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "set_chat_id", "chatId": "S1"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "text_message", "text": "hello"}))

	speechResp := readFrame(t, conn)
	require.Equal(t, "speech_response", speechResp["type"])
	require.Equal(t, true, speechResp["success"])
	require.Equal(t, "hello", speechResp["transcription"])
	require.Equal(t, "it's time", speechResp["textResponse"])

	audio := readFrame(t, conn)
	require.Equal(t, "audio_content", audio["type"])
	require.NotEmpty(t, audio["audioContent"])

	require.Len(t, store.messages, 2)
	require.Equal(t, "user", store.messages[0].Role)
	require.Equal(t, "assistant", store.messages[1].Role)
}

func TestIntegration_WrongOwnershipForbidden(t *testing.T) {
	store := newFakeStore()
	store.mu.Lock()
	store.sessions["S1"] = storemodels.ChatSession{ID: "S1", UserID: "owner"}
	store.mu.Unlock()

	verifier := &fakeVerifier{identities: map[string]service.Identity{"intruder-token": {UserID: "intruder", Role: service.RoleUser}}}
	server, wsURL := newTestServer(t, store, verifier)
	defer server.Close()

	conn := dial(t, wsURL+"?token=intruder-token")
	defer conn.Close()

	_ = readFrame(t, conn) // connection_established

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "set_chat_id", "chatId": "S1"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "text_message", "text": "hello"}))

	errFrame := readFrame(t, conn)
	require.Equal(t, "error", errFrame["type"])
	require.Equal(t, "forbidden", errFrame["error"])
	require.Empty(t, store.messages)
}
