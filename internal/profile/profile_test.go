package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "user_profile.json"), nil)
	assert.Equal(t, Profile{}, s.Load())
}

func TestStore_LoadCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	core, logs := observer.New(zapcore.WarnLevel)
	s := NewStore(path, zap.New(core))

	p := s.Load()
	assert.Equal(t, Profile{}, p)
	assert.Equal(t, Unknown, InitialState(p, 1))
	assert.Equal(t, 1, logs.FilterMessage("profile corrupted; treating user as new").Len())
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "user_profile.json")
	s := NewStore(path, nil)
	seen := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.Save(Profile{Name: "Alice", Interactions: 5, LastSeen: &seen}))

	got := s.Load()
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, 5, got.Interactions)
	require.NotNil(t, got.LastSeen)
	assert.True(t, seen.Equal(*got.LastSeen))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_LegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "  Bob ", "interactions": -3, "face_id": 7}`), 0600))

	got := NewStore(path, nil).Load()
	assert.Equal(t, "Bob", got.Name)
	assert.Equal(t, 0, got.Interactions)
}

func TestStore_MemoryOnly(t *testing.T) {
	s := NewStore("", nil)
	require.NoError(t, s.Save(Profile{Name: "Alice", Interactions: 1}))
	assert.Equal(t, Profile{}, s.Load())
}

func TestInitialState(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		min     int
		want    State
	}{
		{"fresh", Profile{}, 1, Unknown},
		{"returning", Profile{Name: "Alice", Interactions: 5}, 1, Identified},
		{"placeholder name", Profile{Name: "Guest", Interactions: 9}, 1, Unknown},
		{"below threshold", Profile{Name: "Alice", Interactions: 0}, 1, Unknown},
		{"zero threshold", Profile{Name: "Alice"}, 0, Identified},
		{"blank name", Profile{Name: "   ", Interactions: 4}, 1, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InitialState(tt.profile, tt.min))
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Unknown.String())
	assert.Equal(t, "NAME_COLLECTION", NameCollection.String())
	assert.Equal(t, "IDENTIFIED", Identified.String())
	assert.Equal(t, "INVALID", State(9).String())

	text, err := Identified.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "IDENTIFIED", string(text))

	var st State
	require.NoError(t, st.UnmarshalText([]byte("NAME_COLLECTION")))
	assert.Equal(t, NameCollection, st)
	assert.Error(t, st.UnmarshalText([]byte("BOGUS")))
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "Alice"},
		{"  my name is ada lovelace. ", "Ada Lovelace"},
		{"I'm Bob", "Bob"},
		{"I’m bob", "Bob"},
		{"call me carol!", "Carol"},
		{"this is dave", "Dave"},
		{"ZOE", "Zoe"},
		{"my name is", ""},
		{"", ""},
		{"123", ""},
		{"guest", ""},
		{"i am one two three four five", "One Two Three"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseName(tt.in))
		})
	}
}
