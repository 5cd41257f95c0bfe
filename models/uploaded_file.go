package models

import "time"

// UploadedFile records an image stored under the media root so unreferenced files can be removed.
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RelPath   string    `gorm:"size:255;not null;uniqueIndex" json:"rel_path"` // relative to media root, as stored in Post.Image
	UserID    uint      `gorm:"index" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
