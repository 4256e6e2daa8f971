package persist

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mathboard/internal/persist/vfs"
)

// storeFactories lists every backend; each must satisfy the same contract.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			s, err := NewFileStore(vfs.NewMemFS(), "/state")
			require.NoError(t, err)
			return s
		},
		"file-os": func() Store {
			s, err := NewFileStore(vfs.NewOSFS(), filepath.Join(t.TempDir(), "state"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func() Store {
			s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "board.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()

			_, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "k", []byte("one")))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "one", string(got))

			require.NoError(t, s.Put(ctx, "k", []byte("two")))
			got, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(got))

			require.NoError(t, s.Put(ctx, "other", []byte("x")))
			require.NoError(t, s.Delete(ctx, "k"))
			_, err = s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = s.Get(ctx, "other")
			require.NoError(t, err)
			assert.Equal(t, "x", string(got))

			assert.NoError(t, s.Delete(ctx, "missing"))
		})
	}
}

func TestStoreTimestamps(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()

			st, ok := s.(Stamper)
			require.True(t, ok)

			_, err := st.UpdatedAt(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			before := time.Now().Add(-time.Second)
			require.NoError(t, s.Put(ctx, "k", []byte("v")))
			at, err := st.UpdatedAt(ctx, "k")
			require.NoError(t, err)
			assert.True(t, at.After(before), "stamp %v", at)

			require.NoError(t, s.Delete(ctx, "k"))
			_, err = st.UpdatedAt(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()

			assert.Error(t, s.Put(ctx, "k", []byte("v")))
		})
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", value))
	value[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'Y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Put(ctx, "k", nil), ErrClosed)
	assert.ErrorIs(t, s.Delete(ctx, "k"), ErrClosed)
}

func TestFileStoreKeys(t *testing.T) {
	s, err := NewFileStore(vfs.NewMemFS(), "/state")
	require.NoError(t, err)

	p, err := s.Path("mathboard.state")
	require.NoError(t, err)
	assert.Equal(t, "/state/mathboard.state.json", p)

	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := s.Path(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}

	err = s.Put(context.Background(), "../escape", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

// renameFailFS fails every rename, simulating a crash between the
// temporary write and the replace.
type renameFailFS struct {
	*vfs.MemFS
}

var errRename = errors.New("rename failed")

func (f renameFailFS) Rename(string, string) error { return errRename }

func TestFileStoreFailedWriteKeepsPreviousValue(t *testing.T) {
	ctx := context.Background()
	mem := vfs.NewMemFS()

	good, err := NewFileStore(mem, "/state")
	require.NoError(t, err)
	require.NoError(t, good.Put(ctx, "k", []byte("previous")))

	bad, err := NewFileStore(renameFailFS{mem}, "/state")
	require.NoError(t, err)
	err = bad.Put(ctx, "k", []byte("next"))
	assert.ErrorIs(t, err, errRename)

	got, err := good.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
	assert.Equal(t, []string{"/state/k.json"}, mem.Files(), "temporary file must be cleaned up")
}

func TestFileStoreClosed(t *testing.T) {
	s, err := NewFileStore(vfs.NewMemFS(), "/state")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileStoreMissingIsNotFound(t *testing.T) {
	mem := vfs.NewMemFS()
	s, err := NewFileStore(mem, "/state")
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestSQLiteStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "board.db")

	s, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte(`{"version":"2.0","groups":[]}`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"version":"2.0","groups":[]}`, string(got))
}
