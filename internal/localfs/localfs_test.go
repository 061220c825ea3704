package localfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMkdirWriteReadDeleteRoundTrip(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	require.NoError(t, fs.Mkdir(dir))

	file := filepath.Join(dir, "blob.bin")
	require.NoError(t, fs.Write(file, []byte("payload")))

	got, err := fs.Read(file)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	require.NoError(t, fs.Delete(file))
	require.NoError(t, fs.Delete(file)) // idempotent

	_, err = fs.Read(file)
	require.Error(t, err)
}

func TestSelectDirectoryIsUnsupportedHeadless(t *testing.T) {
	fs := New()
	_, err := fs.SelectDirectory()
	require.ErrorIs(t, err, ErrNoDirectoryPicker)
}
