// Package voiceprofile implements the Voice Profile Registry (C11): a
// CRUD-backed catalogue of named TTS voices that the TTS Adapter (C4)
// resolves against, adapted from the teacher's character catalogue.
package voiceprofile

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no profile with the given name exists.
var ErrNotFound = errors.New("voice profile not found")

// Profile is a named TTS voice configuration.
type Profile struct {
	Name         string  `json:"name" gorm:"primaryKey"`
	LanguageCode string  `json:"languageCode"`
	VoiceName    string  `json:"voiceName"`
	Gender       string  `json:"gender"`
	SpeakingRate float64 `json:"speakingRate"`
}

func (Profile) TableName() string {
	return "voice_profiles"
}

// Repository persists voice profiles.
type Repository interface {
	Create(profile *Profile) error
	GetByName(name string) (*Profile, error)
	GetAll() ([]Profile, error)
	Delete(name string) error
}

// GormRepository is the production Repository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wires a Repository to a live database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(profile *Profile) error {
	return r.db.Create(profile).Error
}

func (r *GormRepository) GetByName(name string) (*Profile, error) {
	var profile Profile
	if err := r.db.First(&profile, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *GormRepository) GetAll() ([]Profile, error) {
	var profiles []Profile
	err := r.db.Find(&profiles).Error
	if profiles == nil {
		profiles = []Profile{}
	}
	return profiles, err
}

func (r *GormRepository) Delete(name string) error {
	result := r.db.Where("name = ?", name).Delete(&Profile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DefaultProfile is used when a turn names no voice or names one that
// cannot be resolved.
var DefaultProfile = Profile{
	Name:         "default",
	LanguageCode: "en-IN",
	VoiceName:    "en-IN-Standard-A",
	Gender:       "FEMALE",
	SpeakingRate: 1.0,
}

// Registry is the C11 adapter.
type Registry struct {
	repo Repository
}

// New wires a Registry around a repository.
func New(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// Create adds a new named voice profile.
func (r *Registry) Create(profile *Profile) error {
	return r.repo.Create(profile)
}

// All returns every registered profile.
func (r *Registry) All() ([]Profile, error) {
	return r.repo.GetAll()
}

// Delete removes a named voice profile (SPEC_FULL §4.6 C11 CRUD). A
// deleted profile simply falls out of Resolve's lookup and future
// Resolve calls for that name fall back to DefaultProfile.
func (r *Registry) Delete(name string) error {
	return r.repo.Delete(name)
}

// Resolve returns the named profile, falling back to DefaultProfile if
// name is empty or unknown (spec [EXPANSION] §3 VoiceProfile).
func (r *Registry) Resolve(name string) Profile {
	if name == "" {
		return DefaultProfile
	}
	profile, err := r.repo.GetByName(name)
	if err != nil {
		return DefaultProfile
	}
	return *profile
}
