package models

import "time"

// Comment is a reply to a post. Comments are immutable once created.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	PostID   uint      `gorm:"index;not null" json:"post_id"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
