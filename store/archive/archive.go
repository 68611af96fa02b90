// Package archive implements the Audio Archive (C12): optional,
// TTL-bounded write-behind persistence of raw inbound audio, adapted from
// the teacher's audio chunk store. Never consulted by the turn pipeline;
// purely a sink for offline reprocessing.
package archive

import (
	"time"

	"voxgate/backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newChunkID() string {
	return uuid.NewString()
}

// Chunk is one archived inbound audio payload, keyed by the turn that
// produced it.
type Chunk struct {
	ID         string    `json:"chunkId" gorm:"primaryKey"`
	ChatID     string    `json:"chatId" gorm:"index"`
	MessageID  string    `json:"messageId"`
	AudioBytes []byte    `json:"-"`
	Format     string    `json:"format"`
	SampleRate int       `json:"sampleRateHz"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"-" gorm:"index"`
}

func (Chunk) TableName() string {
	return "audio_archive_chunks"
}

// Expired reports whether the chunk has passed its TTL.
func (c *Chunk) Expired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Repository persists and sweeps archived chunks.
type Repository interface {
	Create(chunk *Chunk) error
	DeleteExpired(before time.Time) (int64, error)
}

// GormRepository is the production Repository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wires a Repository to a live database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(chunk *Chunk) error {
	return r.db.Create(chunk).Error
}

func (r *GormRepository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", before).Delete(&Chunk{})
	return result.RowsAffected, result.Error
}

// Archive is the C12 adapter: a non-blocking write-behind sink plus a
// background TTL sweeper.
type Archive struct {
	repo    Repository
	log     *logger.Logger
	enabled bool
	ttl     time.Duration
}

// Config controls whether the archive is active and how long it retains
// chunks.
type Config struct {
	Enabled bool
	TTL     time.Duration
}

// New creates an Archive. When cfg.Enabled is false, Store is a no-op so
// callers never need to branch on configuration.
func New(repo Repository, log *logger.Logger, cfg Config) *Archive {
	return &Archive{repo: repo, log: log, enabled: cfg.Enabled, ttl: cfg.TTL}
}

// Store archives audioBytes for a turn. Called as "go archive.Store(...)"
// by the STT adapter so it never blocks the turn (spec §4.3/[EXPANSION] C12).
func (a *Archive) Store(chatID, messageID string, audioBytes []byte, format string, sampleRate int) {
	if !a.enabled {
		return
	}
	now := time.Now().UTC()
	chunk := &Chunk{
		ID:         newChunkID(),
		ChatID:     chatID,
		MessageID:  messageID,
		AudioBytes: audioBytes,
		Format:     format,
		SampleRate: sampleRate,
		CreatedAt:  now,
		ExpiresAt:  now.Add(a.ttl),
	}
	if err := a.repo.Create(chunk); err != nil {
		a.log.Warn("audio archive write failed", "chatId", chatID, "messageId", messageID, "error", err.Error())
	}
}

// Sweep deletes every chunk past its TTL. Intended to run on a periodic
// ticker from cmd/server's main loop.
func (a *Archive) Sweep() {
	if !a.enabled {
		return
	}
	deleted, err := a.repo.DeleteExpired(time.Now().UTC())
	if err != nil {
		a.log.Warn("audio archive sweep failed", "error", err.Error())
		return
	}
	if deleted > 0 {
		a.log.Info("audio archive sweep complete", "deleted", deleted)
	}
}
