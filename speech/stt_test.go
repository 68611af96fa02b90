package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"voxgate/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeArchive) Store(chatID, messageID string, audioBytes []byte, format string, sampleRate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func TestSTTClient_Recognise_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer server.Close()

	client := NewSTTClient(server.URL, "test-key", nil, logger.New(logger.DefaultConfig()))
	result, err := client.Recognise(context.Background(), []byte("fake-audio"), "chat-1", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
}

func TestSTTClient_Recognise_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewSTTClient(server.URL, "test-key", nil, logger.New(logger.DefaultConfig()))
	_, err := client.Recognise(context.Background(), []byte("fake-audio"), "chat-1", "msg-1")
	assert.Error(t, err)
}

func TestSTTClient_Recognise_ArchivesWriteBehind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"hi"}`))
	}))
	defer server.Close()

	archive := &fakeArchive{}
	client := NewSTTClient(server.URL, "test-key", archive, logger.New(logger.DefaultConfig()))
	_, err := client.Recognise(context.Background(), []byte("fake-audio"), "chat-1", "msg-1")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		archive.mu.Lock()
		defer archive.mu.Unlock()
		return archive.calls == 1
	}, time.Second, 10*time.Millisecond)
}
