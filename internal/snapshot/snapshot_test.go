package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "state", "last_announcements.json"))
	s.log = logger.Nop()
	s.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		anns []types.Announcement
	}{
		{"titles only", []types.Announcement{{Title: "A"}, {Title: "B"}}},
		{"with links", []types.Announcement{
			{Title: "Araştırma görevlisi alınacaktır", Link: "https://www.maltepe.edu.tr/tr/duyuru/1"},
			{Title: "Bahar dönemi <final> takvimi", Link: "https://www.maltepe.edu.tr/tr/duyuru/2?a=1&b=2"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, s.Save(tt.anns))
			assert.Equal(t, tt.anns, s.Load())
		})
	}
}

func TestSaveEmptyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(nil))
	assert.Empty(t, s.Load())
}

func TestSaveDocumentShape(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save([]types.Announcement{{Title: "Sınav alınacaktır"}, {Title: "B", Link: "https://x/b"}}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	// Turkish text stays readable on disk.
	assert.Contains(t, string(data), "Sınav alınacaktır")

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(2), raw["count"])
	assert.Equal(t, "2026-03-01T09:30:00Z", raw["last_update"])
	assert.Equal(t, []interface{}{"Sınav alınacaktır", "B"}, raw["titles"])
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.Load())
}

func TestLoadMalformedFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	assert.Empty(t, s.Load())
}

func TestLoadLegacyFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"title document", `{"last_update": "2024-01-01T10:00:00", "count": 2, "titles": ["A", "B"]}`},
		{"bare list", `["A", "B"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.data), 0o644))

			assert.Equal(t, []types.Announcement{{Title: "A"}, {Title: "B"}}, s.Load())
		})
	}
}

func TestSaveFailureIsReturned(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := NewStore(filepath.Join(blocker, "snap.json"))
	s.log = logger.Nop()

	err := s.Save([]types.Announcement{{Title: "A"}})
	assert.Error(t, err)
}
