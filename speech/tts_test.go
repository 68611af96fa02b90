package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"voxgate/backend/pkg/logger"
	"voxgate/backend/speech/voiceprofile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileRepository struct {
	profiles map[string]voiceprofile.Profile
}

func (f *fakeProfileRepository) Create(p *voiceprofile.Profile) error {
	f.profiles[p.Name] = *p
	return nil
}

func (f *fakeProfileRepository) GetByName(name string) (*voiceprofile.Profile, error) {
	p, ok := f.profiles[name]
	if !ok {
		return nil, voiceprofile.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfileRepository) GetAll() ([]voiceprofile.Profile, error) {
	var out []voiceprofile.Profile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProfileRepository) Delete(name string) error {
	if _, ok := f.profiles[name]; !ok {
		return voiceprofile.ErrNotFound
	}
	delete(f.profiles, name)
	return nil
}

func TestTTSClient_Synthesise_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer server.Close()

	registry := voiceprofile.New(&fakeProfileRepository{profiles: make(map[string]voiceprofile.Profile)})
	client := NewTTSClient(server.URL, "test-key", registry, logger.New(logger.DefaultConfig()))

	result, err := client.Synthesise(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3-bytes"), result.AudioContent)
}

func TestTTSClient_Synthesise_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	registry := voiceprofile.New(&fakeProfileRepository{profiles: make(map[string]voiceprofile.Profile)})
	client := NewTTSClient(server.URL, "test-key", registry, logger.New(logger.DefaultConfig()))

	_, err := client.Synthesise(context.Background(), "hello", "")
	assert.Error(t, err)
}
