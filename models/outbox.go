package models

import "time"

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// Event types written to the outbox.
const (
	EventPostCreated   = "post.created"
	EventFollowCreated = "follow.created"
	EventFollowDeleted = "follow.deleted"
)

// SocialOutbox holds domain events written in the same transaction as the change
// and delivered later by the outbox relay.
type SocialOutbox struct {
	ID        uint   `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"`
	ActorID   uint   `gorm:"not null"`
	SubjectID uint   `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index:idx_outbox_status_id,priority:1"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
