package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUploadsSave(t *testing.T) {
	dir := t.TempDir()
	u := NewUploads(dir, 16)

	name, err := u.Save("front_view", "me.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, "front_view_"))
	require.True(t, strings.HasSuffix(name, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
}

func TestUploadsExtension(t *testing.T) {
	u := NewUploads(t.TempDir(), 16)

	name, err := u.Save("side_view", "shell.php", "image/webp", strings.NewReader("x"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".webp"))

	name, err = u.Save("side_view", "", "", strings.NewReader("x"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".jpg"))
}

func TestUploadsTooLarge(t *testing.T) {
	dir := t.TempDir()
	u := NewUploads(dir, 4)

	_, err := u.Save("reference_fit", "big.jpg", "image/jpeg", bytes.NewReader(make([]byte, 5)))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
