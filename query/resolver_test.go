package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"voxgate/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answerText":"it's 3pm","intent":"TIME_QUERY","confidence":0.9}`))
	}))
	defer server.Close()

	resolver := New(server.URL, "test-key", logger.New(logger.DefaultConfig()))
	result, err := resolver.Resolve(context.Background(), "user-1", "what time is it")
	require.NoError(t, err)
	assert.Equal(t, "it's 3pm", result.AnswerText)
	assert.Equal(t, IntentTime, result.Metadata.Intent)
	assert.Equal(t, 0.9, result.Metadata.Confidence)
}

func TestResolver_Resolve_DefaultsUnknownIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answerText":"not sure"}`))
	}))
	defer server.Close()

	resolver := New(server.URL, "", logger.New(logger.DefaultConfig()))
	result, err := resolver.Resolve(context.Background(), "user-1", "huh")
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, result.Metadata.Intent)
}

func TestResolver_Resolve_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	resolver := New(server.URL, "test-key", logger.New(logger.DefaultConfig()))
	_, err := resolver.Resolve(context.Background(), "user-1", "anything")
	assert.Error(t, err)
}
