// Package repository is the GORM/Postgres persistence layer for the
// Session Store (C2), grounded on conversation/repository's
// GormMessageRepository in the teacher tree.
package repository

import (
	"voxgate/backend/store/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository is the storage-facing contract the Store service
// depends on. A GORM implementation backs production; tests substitute
// an in-memory fake.
type SessionRepository interface {
	CreateSession(session *models.ChatSession) error
	GetSession(chatID string) (*models.ChatSession, error)
	ListSessions(userID string) ([]models.ChatSession, error)
	TouchSession(chatID string) error
	AppendMessage(message *models.Message) error
	ListMessages(chatID string) ([]models.Message, error)
}

// GormSessionRepository is the production SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository wires a SessionRepository to a live database.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) CreateSession(session *models.ChatSession) error {
	return r.db.Create(session).Error
}

func (r *GormSessionRepository) GetSession(chatID string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.First(&session, "id = ?", chatID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormSessionRepository) ListSessions(userID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.Where("user_id = ?", userID).
		Order("last_updated desc").
		Find(&sessions).Error
	return sessions, err
}

func (r *GormSessionRepository) TouchSession(chatID string) error {
	return r.db.Model(&models.ChatSession{}).
		Where("id = ?", chatID).
		Update("last_updated", gorm.Expr("now()")).Error
}

// AppendMessage inserts a message, ignoring the write if the message's ID
// was already persisted by an earlier, since-cancelled attempt at the same
// turn (spec §8 invariant 5: idempotent append).
func (r *GormSessionRepository) AppendMessage(message *models.Message) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(message).Error
}

func (r *GormSessionRepository) ListMessages(chatID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("timestamp asc").
		Find(&messages).Error
	return messages, err
}
