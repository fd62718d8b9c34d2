package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

func TestJSONStore_LoadMissingFile(t *testing.T) {
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "nested"), "db.json")
	require.NoError(t, err)

	d := doc{Count: 7}
	require.NoError(t, s.Load(&d))
	assert.Equal(t, 7, d.Count)
	assert.False(t, s.Exists())
}

func TestJSONStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "db.json")
	require.NoError(t, err)

	require.NoError(t, s.Save(doc{Count: 2, Names: []string{"a", "b"}}))
	assert.True(t, s.Exists())
	assert.Equal(t, filepath.Join(dir, "db.json"), s.Path())

	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	var got doc
	require.NoError(t, s.Load(&got))
	assert.Equal(t, doc{Count: 2, Names: []string{"a", "b"}}, got)
}

func TestJSONStore_UpdateAbortsOnError(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), "db.json")
	require.NoError(t, err)
	require.NoError(t, s.Save(doc{Count: 1}))

	boom := errors.New("abort")
	var d doc
	err = s.Update(&d, func() error {
		d.Count = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var got doc
	require.NoError(t, s.Load(&got))
	assert.Equal(t, 1, got.Count)
}

func TestJSONStore_ConcurrentUpdates(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), "db.json")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var d doc
			assert.NoError(t, s.Update(&d, func() error {
				d.Count++
				return nil
			}))
		}()
	}
	wg.Wait()

	var got doc
	require.NoError(t, s.Load(&got))
	assert.Equal(t, 20, got.Count)
}

func TestJSONStore_CorruptFile(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), "db.json")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{broken"), 0o644))

	var d doc
	assert.Error(t, s.Load(&d))
}
