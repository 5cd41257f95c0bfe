package models

import "time"

// Post is a single authored text entry, optionally grouped and illustrated.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index" json:"pub_date"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	// Image is a path relative to the media root, e.g. "posts/cat.gif".
	Image     string    `gorm:"size:255" json:"image"`
	UpdatedAt time.Time `json:"-"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Group     *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// Excerpt returns at most n runes of the text.
func (p Post) Excerpt(n int) string {
	r := []rune(p.Text)
	if len(r) <= n {
		return p.Text
	}
	return string(r[:n]) + "…"
}
