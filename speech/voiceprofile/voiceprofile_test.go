package voiceprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	profiles map[string]Profile
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{profiles: make(map[string]Profile)}
}

func (f *fakeRepository) Create(profile *Profile) error {
	f.profiles[profile.Name] = *profile
	return nil
}

func (f *fakeRepository) GetByName(name string) (*Profile, error) {
	profile, ok := f.profiles[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (f *fakeRepository) GetAll() ([]Profile, error) {
	var out []Profile
	for _, profile := range f.profiles {
		out = append(out, profile)
	}
	return out, nil
}

func (f *fakeRepository) Delete(name string) error {
	if _, ok := f.profiles[name]; !ok {
		return ErrNotFound
	}
	delete(f.profiles, name)
	return nil
}

func TestRegistry_Resolve_Known(t *testing.T) {
	repo := newFakeRepository()
	registry := New(repo)
	require.NoError(t, registry.Create(&Profile{Name: "narrator", LanguageCode: "en-US", VoiceName: "en-US-Wavenet-D", Gender: "MALE", SpeakingRate: 1.1}))

	resolved := registry.Resolve("narrator")
	assert.Equal(t, "en-US-Wavenet-D", resolved.VoiceName)
}

func TestRegistry_Resolve_UnknownFallsBackToDefault(t *testing.T) {
	registry := New(newFakeRepository())

	resolved := registry.Resolve("missing")
	assert.Equal(t, DefaultProfile, resolved)
}

func TestRegistry_Resolve_EmptyNameFallsBackToDefault(t *testing.T) {
	registry := New(newFakeRepository())

	resolved := registry.Resolve("")
	assert.Equal(t, DefaultProfile, resolved)
}

func TestRegistry_Delete_RemovesProfile(t *testing.T) {
	repo := newFakeRepository()
	registry := New(repo)
	require.NoError(t, registry.Create(&Profile{Name: "narrator", LanguageCode: "en-US", VoiceName: "en-US-Wavenet-D"}))

	require.NoError(t, registry.Delete("narrator"))

	resolved := registry.Resolve("narrator")
	assert.Equal(t, DefaultProfile, resolved)
}

func TestRegistry_Delete_UnknownReturnsNotFound(t *testing.T) {
	registry := New(newFakeRepository())

	err := registry.Delete("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
