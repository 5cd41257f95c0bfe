package utils_test

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func TestValidateImage(t *testing.T) {
	assert.NoError(t, utils.ValidateImage(testutil.TinyGIF))
	assert.ErrorIs(t, utils.ValidateImage([]byte("not an image")), utils.ErrInvalidImage)
	assert.ErrorIs(t, utils.ValidateImage(nil), utils.ErrInvalidImage)
}

func uploadHeader(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}

func TestReadUpload(t *testing.T) {
	data, err := utils.ReadUpload(uploadHeader(t, "small.gif", testutil.TinyGIF), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, testutil.TinyGIF, data)

	_, err = utils.ReadUpload(uploadHeader(t, "big.gif", bytes.Repeat([]byte("x"), 64)), 32)
	assert.ErrorIs(t, err, utils.ErrImageTooBig)

	_, err = utils.ReadUpload(uploadHeader(t, "empty.gif", nil), 1<<20)
	assert.ErrorIs(t, err, utils.ErrEmptyUpload)

	data, err = utils.ReadUpload(uploadHeader(t, "big.gif", bytes.Repeat([]byte("x"), 64)), 0)
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

func TestSaveImageBytesAvoidsOverwrite(t *testing.T) {
	root := t.TempDir()

	first, err := utils.SaveImageBytes(root, "small.gif", testutil.TinyGIF)
	require.NoError(t, err)
	assert.Equal(t, "posts/small.gif", first)

	second, err := utils.SaveImageBytes(root, "small.gif", testutil.TinyGIF)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "posts/small_"))
	assert.True(t, strings.HasSuffix(second, ".gif"))

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(second)))
	assert.NoError(t, err)
}

func TestSaveImageBytesCleansName(t *testing.T) {
	root := t.TempDir()
	rel, err := utils.SaveImageBytes(root, "../../etc/my cat?.gif", testutil.TinyGIF)
	require.NoError(t, err)
	assert.Equal(t, "posts/my_cat_.gif", rel)
}

func TestRemoveMediaStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	rel, err := utils.SaveImageBytes(root, "a.gif", testutil.TinyGIF)
	require.NoError(t, err)

	assert.Error(t, utils.RemoveMedia(root, "../outside.gif"))
	assert.NoError(t, utils.RemoveMedia(root, rel))
	assert.NoError(t, utils.RemoveMedia(root, rel), "missing files are not an error")
}
