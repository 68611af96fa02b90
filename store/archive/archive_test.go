package archive

import (
	"testing"
	"time"

	"voxgate/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	chunks []Chunk
}

func (f *fakeRepository) Create(chunk *Chunk) error {
	f.chunks = append(f.chunks, *chunk)
	return nil
}

func (f *fakeRepository) DeleteExpired(before time.Time) (int64, error) {
	var kept []Chunk
	var deleted int64
	for _, chunk := range f.chunks {
		if chunk.ExpiresAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, chunk)
	}
	f.chunks = kept
	return deleted, nil
}

func TestArchive_Store_Disabled(t *testing.T) {
	repo := &fakeRepository{}
	a := New(repo, logger.New(logger.DefaultConfig()), Config{Enabled: false, TTL: time.Hour})

	a.Store("chat-1", "msg-1", []byte("raw"), "wav", 16000)

	assert.Empty(t, repo.chunks)
}

func TestArchive_Store_Enabled(t *testing.T) {
	repo := &fakeRepository{}
	a := New(repo, logger.New(logger.DefaultConfig()), Config{Enabled: true, TTL: time.Hour})

	a.Store("chat-1", "msg-1", []byte("raw"), "wav", 16000)

	require.Len(t, repo.chunks, 1)
	assert.Equal(t, "chat-1", repo.chunks[0].ChatID)
	assert.Equal(t, "msg-1", repo.chunks[0].MessageID)
	assert.False(t, repo.chunks[0].Expired())
}

func TestArchive_Sweep_RemovesExpired(t *testing.T) {
	repo := &fakeRepository{}
	a := New(repo, logger.New(logger.DefaultConfig()), Config{Enabled: true, TTL: -time.Hour})

	a.Store("chat-1", "msg-1", []byte("raw"), "wav", 16000)
	require.Len(t, repo.chunks, 1)

	a.Sweep()

	assert.Empty(t, repo.chunks)
}
