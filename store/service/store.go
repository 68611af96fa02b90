// Package service implements the Session Store (C2): session creation,
// idempotent message append, and ownership-gated reads, fronted by a
// Redis read-through cache.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"voxgate/backend/pkg/logger"
	"voxgate/backend/store/models"
	"voxgate/backend/store/repository"
	sharedredis "voxgate/backend/shared/redis"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a chatId has no corresponding session.
var ErrNotFound = errors.New("session not found")

// ErrForbidden is returned when the requesting user does not own the
// session (spec §8 invariant 4).
var ErrForbidden = errors.New("session not owned by requesting user")

const (
	sessionCacheTTL = 5 * time.Minute
	sessionKeyPrefix = "voxgate:session:"
	sessionListKeyPrefix = "voxgate:sessions:"
)

// Store is the concrete C2 adapter.
type Store struct {
	repo  repository.SessionRepository
	cache *sharedredis.RedisClient
	log   *logger.Logger
}

// New wires a Store around a repository and an optional cache. Passing a
// nil cache disables the read-through layer entirely.
func New(repo repository.SessionRepository, cache *sharedredis.RedisClient, log *logger.Logger) *Store {
	return &Store{repo: repo, cache: cache, log: log}
}

// CreateSession writes a new session document with createdAt == lastUpdated.
func (s *Store) CreateSession(_ context.Context, userID, title string) (string, error) {
	now := time.Now().UTC()
	session := &models.ChatSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.repo.CreateSession(session); err != nil {
		return "", err
	}
	s.invalidateSessionList(userID)
	return session.ID, nil
}

// AppendMessage server-assigns a messageId and persists it, advancing the
// session's lastUpdated. The messageId is minted before the write so a
// cancelled-and-retried turn can safely call this twice (spec §8
// invariant 5).
func (s *Store) AppendMessage(_ context.Context, chatID, role, text, sourceType string) (string, error) {
	message := &models.Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		Role:       role,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		SourceType: sourceType,
	}
	if err := s.repo.AppendMessage(message); err != nil {
		return "", err
	}
	if err := s.repo.TouchSession(chatID); err != nil {
		// The message write is primary; the lastUpdated bump is
		// best-effort (spec §4.2).
		s.log.Warn("failed to bump session lastUpdated", "chatId", chatID, "error", err.Error())
	}
	s.invalidateSession(chatID)
	return message.ID, nil
}

// LoadSession returns the session iff it is owned by requestingUserID.
func (s *Store) LoadSession(_ context.Context, chatID, requestingUserID string) (*models.ChatSession, error) {
	if cached, ok := s.readSessionCache(chatID); ok {
		if cached.UserID != requestingUserID {
			return nil, ErrForbidden
		}
		return cached, nil
	}

	session, err := s.repo.GetSession(chatID)
	if err != nil {
		return nil, ErrNotFound
	}
	s.writeSessionCache(session)

	if session.UserID != requestingUserID {
		return nil, ErrForbidden
	}
	return session, nil
}

// ListSessions returns every session owned by userID, newest first.
func (s *Store) ListSessions(_ context.Context, userID string) ([]models.ChatSession, error) {
	if cached, ok := s.readSessionListCache(userID); ok {
		return cached, nil
	}

	sessions, err := s.repo.ListSessions(userID)
	if err != nil {
		return nil, err
	}
	s.writeSessionListCache(userID, sessions)
	return sessions, nil
}

// ListMessages returns chatID's transcript, ownership-enforced.
func (s *Store) ListMessages(ctx context.Context, chatID, requestingUserID string) ([]models.Message, error) {
	if _, err := s.LoadSession(ctx, chatID, requestingUserID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(chatID)
}

func (s *Store) readSessionCache(chatID string) (*models.ChatSession, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(sessionKeyPrefix + chatID)
	if err != nil || raw == "" {
		return nil, false
	}
	var session models.ChatSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, false
	}
	return &session, true
}

func (s *Store) writeSessionCache(session *models.ChatSession) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := s.cache.Set(sessionKeyPrefix+session.ID, raw, sessionCacheTTL); err != nil {
		s.log.Warn("session cache write failed", "chatId", session.ID, "error", err.Error())
	}
}

func (s *Store) invalidateSession(chatID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(sessionKeyPrefix + chatID); err != nil {
		s.log.Warn("session cache invalidation failed", "chatId", chatID, "error", err.Error())
	}
}

func (s *Store) readSessionListCache(userID string) ([]models.ChatSession, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(sessionListKeyPrefix + userID)
	if err != nil || raw == "" {
		return nil, false
	}
	var sessions []models.ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, false
	}
	return sessions, true
}

func (s *Store) writeSessionListCache(userID string, sessions []models.ChatSession) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return
	}
	if err := s.cache.Set(sessionListKeyPrefix+userID, raw, sessionCacheTTL); err != nil {
		s.log.Warn("session list cache write failed", "userId", userID, "error", err.Error())
	}
}

func (s *Store) invalidateSessionList(userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(sessionListKeyPrefix + userID); err != nil {
		s.log.Warn("session list cache invalidation failed", "userId", userID, "error", err.Error())
	}
}
