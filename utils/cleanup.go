package utils

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

// CleanOrphanMedia deletes uploaded files that no post references once they are older than grace.
// It returns how many files were removed.
func CleanOrphanMedia(ctx context.Context, db *gorm.DB, root string, grace time.Duration) (int, error) {
	var items []models.UploadedFile
	err := db.WithContext(ctx).
		Where("created_at <= ?", time.Now().Add(-grace)).
		Where("rel_path NOT IN (?)", db.Model(&models.Post{}).Select("image").Where("image <> ''")).
		Limit(100).
		Find(&items).Error
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if err := RemoveMedia(root, it.RelPath); err != nil {
			Sugar.Warnf("media cleaner remove %s failed: %v", it.RelPath, err)
			continue
		}
		// Remove row only once the file is gone
		if err := db.WithContext(ctx).Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			Sugar.Warnf("media cleaner delete row failed: %v", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// StartMediaCleaner periodically runs CleanOrphanMedia until ctx is cancelled.
func StartMediaCleaner(ctx context.Context, db *gorm.DB, root string, interval, grace time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := CleanOrphanMedia(ctx, db, root, grace)
				if err != nil {
					Sugar.Errorf("media cleaner query failed: %v", err)
					continue
				}
				if n > 0 {
					Sugar.Infof("media cleaner removed %d orphan files", n)
				}
			}
		}
	}()
}
