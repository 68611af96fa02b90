package service

import (
	"context"
	"testing"

	"voxgate/backend/pkg/logger"
	"voxgate/backend/store/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.DefaultConfig())
}

// fakeRepository is an in-memory SessionRepository substitute.
type fakeRepository struct {
	sessions map[string]models.ChatSession
	messages map[string][]models.Message
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		sessions: make(map[string]models.ChatSession),
		messages: make(map[string][]models.Message),
	}
}

func (f *fakeRepository) CreateSession(session *models.ChatSession) error {
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeRepository) GetSession(chatID string) (*models.ChatSession, error) {
	session, ok := f.sessions[chatID]
	if !ok {
		return nil, assert.AnError
	}
	return &session, nil
}

func (f *fakeRepository) ListSessions(userID string) ([]models.ChatSession, error) {
	var out []models.ChatSession
	for _, session := range f.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeRepository) TouchSession(chatID string) error {
	session, ok := f.sessions[chatID]
	if !ok {
		return assert.AnError
	}
	session.LastUpdated = session.LastUpdated.Add(1)
	f.sessions[chatID] = session
	return nil
}

func (f *fakeRepository) AppendMessage(message *models.Message) error {
	for _, existing := range f.messages[message.ChatID] {
		if existing.ID == message.ID {
			return nil
		}
	}
	f.messages[message.ChatID] = append(f.messages[message.ChatID], *message)
	return nil
}

func (f *fakeRepository) ListMessages(chatID string) ([]models.Message, error) {
	return f.messages[chatID], nil
}

func TestStore_CreateAndLoadSession(t *testing.T) {
	store := New(newFakeRepository(), nil, testLogger())

	chatID, err := store.CreateSession(context.Background(), "user-1", "My chat")
	require.NoError(t, err)
	require.NotEmpty(t, chatID)

	session, err := store.LoadSession(context.Background(), chatID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "My chat", session.Title)
	assert.Equal(t, session.CreatedAt, session.LastUpdated)
}

func TestStore_LoadSession_WrongOwner(t *testing.T) {
	store := New(newFakeRepository(), nil, testLogger())

	chatID, err := store.CreateSession(context.Background(), "user-1", "My chat")
	require.NoError(t, err)

	_, err = store.LoadSession(context.Background(), chatID, "user-2")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStore_LoadSession_NotFound(t *testing.T) {
	store := New(newFakeRepository(), nil, testLogger())

	_, err := store.LoadSession(context.Background(), "missing-chat", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AppendMessage_IdempotentRetry(t *testing.T) {
	repo := newFakeRepository()
	store := New(repo, nil, testLogger())

	chatID, err := store.CreateSession(context.Background(), "user-1", "My chat")
	require.NoError(t, err)

	messageID, err := store.AppendMessage(context.Background(), chatID, "user", "hello", "text")
	require.NoError(t, err)

	// Simulate a cancelled turn retrying the same append with the same
	// pre-assigned ID (spec §8 invariant 5).
	retried := &models.Message{ID: messageID, ChatID: chatID, Role: "user", Text: "hello", SourceType: "text"}
	require.NoError(t, repo.AppendMessage(retried))

	messages, err := store.ListMessages(context.Background(), chatID, "user-1")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestStore_ListMessages_OwnershipEnforced(t *testing.T) {
	store := New(newFakeRepository(), nil, testLogger())

	chatID, err := store.CreateSession(context.Background(), "user-1", "My chat")
	require.NoError(t, err)
	_, err = store.AppendMessage(context.Background(), chatID, "user", "hi", "text")
	require.NoError(t, err)

	_, err = store.ListMessages(context.Background(), chatID, "someone-else")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStore_ListSessions_ReturnsOwnedSessions(t *testing.T) {
	store := New(newFakeRepository(), nil, testLogger())

	_, err := store.CreateSession(context.Background(), "user-1", "first")
	require.NoError(t, err)
	_, err = store.CreateSession(context.Background(), "user-1", "second")
	require.NoError(t, err)

	sessions, err := store.ListSessions(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
