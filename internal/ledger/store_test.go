package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "levels.json"))
}

func TestStore_Load_MissingFile(t *testing.T) {
	s := tempStore(t)

	l, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, l)

	// The backing file is created so that later saves always overwrite an
	// existing document.
	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestStore_Load_CorruptFile(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	l, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, l)

	// The unparseable content is preserved for inspection.
	backup, err := os.ReadFile(s.Path() + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	s := tempStore(t)

	l := Ledger{}
	l.Set("guild-1", "user-1", Record{XP: 42, Level: 3})
	l.Set("guild-1", "user-2", Record{XP: 7, Level: 0})
	l.Set("guild-2", "user-1", Record{XP: 0, Level: 1})
	require.NoError(t, s.Save(l))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, l, loaded)

	// Saving the loaded ledger unchanged yields the same document again.
	require.NoError(t, s.Save(loaded))
	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, loaded, again)
}

func TestStore_Save_PrettyPrinted(t *testing.T) {
	s := tempStore(t)

	l := Ledger{}
	l.Set("guild-1", "user-1", Record{XP: 10, Level: 1})
	require.NoError(t, s.Save(l))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"guild-1\"", "expected 4-space indentation")
	assert.Contains(t, string(raw), `"xp": 10`)
	assert.Contains(t, string(raw), `"level": 1`)
}

func TestStore_Update_SingleLockReadModifyWrite(t *testing.T) {
	s := tempStore(t)

	updated, err := s.Update(func(l Ledger) {
		rec := l.Get("g", "u")
		rec.XP += 15
		l.Set("g", "u", rec)
	})
	require.NoError(t, err)
	assert.Equal(t, Record{XP: 15, Level: 0}, updated.Get("g", "u"))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Record{XP: 15, Level: 0}, loaded.Get("g", "u"))
}

func TestStore_Update_ConcurrentGrantsAreNotLost(t *testing.T) {
	s := tempStore(t)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(func(l Ledger) {
				rec := l.Get("g", "u")
				rec.XP++
				l.Set("g", "u", rec)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, workers, loaded.Get("g", "u").XP)
}

func TestLedger_GetAndHas(t *testing.T) {
	l := Ledger{}

	assert.False(t, l.Has("g", "u"))
	assert.Equal(t, Record{}, l.Get("g", "u"))

	l.Set("g", "u", Record{XP: 1, Level: 2})
	assert.True(t, l.Has("g", "u"))
	assert.Equal(t, Record{XP: 1, Level: 2}, l.Get("g", "u"))
}

func TestStore_Load_EmptyJSONDocument(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("null"), 0644))

	l, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, l)

	// A null document must still yield a usable ledger.
	l.Set("g", "u", Record{XP: 1})
	assert.True(t, l.Has("g", "u"))
}

func TestStore_Save_OverwritesPreviousContent(t *testing.T) {
	s := tempStore(t)

	l := Ledger{}
	l.Set("g", "u", Record{XP: 999, Level: 9})
	require.NoError(t, s.Save(l))

	require.NoError(t, s.Save(Ledger{}))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "999"), "old content must not linger")
}
