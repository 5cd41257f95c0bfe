package utils_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func TestCleanOrphanMedia(t *testing.T) {
	cfg := testutil.UseConfig(t)
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")

	used, err := utils.SaveImageBytes(cfg.MediaRoot, "used.gif", testutil.TinyGIF)
	require.NoError(t, err)
	orphan, err := utils.SaveImageBytes(cfg.MediaRoot, "orphan.gif", testutil.TinyGIF)
	require.NoError(t, err)
	fresh, err := utils.SaveImageBytes(cfg.MediaRoot, "fresh.gif", testutil.TinyGIF)
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Create(&models.UploadedFile{RelPath: used, UserID: author.ID, CreatedAt: old}).Error)
	require.NoError(t, db.Create(&models.UploadedFile{RelPath: orphan, UserID: author.ID, CreatedAt: old}).Error)
	require.NoError(t, db.Create(&models.UploadedFile{RelPath: fresh, UserID: author.ID}).Error)
	require.NoError(t, db.Create(&models.Post{Text: "with image", AuthorID: author.ID, Image: used}).Error)

	n, err := utils.CleanOrphanMedia(context.Background(), db, cfg.MediaRoot, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(cfg.MediaRoot, filepath.FromSlash(orphan)))
	assert.True(t, os.IsNotExist(err))
	for _, rel := range []string{used, fresh} {
		_, err = os.Stat(filepath.Join(cfg.MediaRoot, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	var left int64
	db.Model(&models.UploadedFile{}).Count(&left)
	assert.Equal(t, int64(2), left)
}
