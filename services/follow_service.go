package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
)

// FollowService manages the follow graph and the personalized feed.
type FollowService struct {
	db    *gorm.DB
	posts *PostService
}

func NewFollowService(db *gorm.DB, posts *PostService) *FollowService {
	return &FollowService{db: db, posts: posts}
}

// FollowStats is shown on profile pages.
type FollowStats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// Follow makes userID follow the named author. Repeating it is a no-op.
// It reports whether a new row was written.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, bool, error) {
	author, err := FindUser(ctx, s.db, username)
	if err != nil {
		return nil, false, err
	}
	if author.ID == userID {
		return author, false, ErrSelfFollow
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{UserID: userID, AuthorID: author.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return insertOutbox(tx, models.EventFollowCreated, userID, author.ID, nil)
	})
	if err != nil {
		return author, false, fmt.Errorf("follow %q: %w", username, err)
	}
	return author, created, nil
}

// Unfollow removes the follow if present. It reports whether a row was deleted.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, bool, error) {
	author, err := FindUser(ctx, s.db, username)
	if err != nil {
		return nil, false, err
	}

	deleted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND author_id = ?", userID, author.ID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return insertOutbox(tx, models.EventFollowDeleted, userID, author.ID, nil)
	})
	if err != nil {
		return author, false, fmt.Errorf("unfollow %q: %w", username, err)
	}
	return author, deleted, nil
}

// IsFollowing reports whether userID follows authorID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 || userID == authorID {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	return n > 0, err
}

// Stats counts followers and followed authors of userID.
func (s *FollowService) Stats(ctx context.Context, userID uint) (FollowStats, error) {
	var st FollowStats
	q := s.db.WithContext(ctx).Model(&models.Follow{})
	if err := q.Where("author_id = ?", userID).Count(&st.Followers).Error; err != nil {
		return st, err
	}
	err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ?", userID).Count(&st.Following).Error
	return st, err
}

// Feed returns a page of posts written by authors userID follows.
func (s *FollowService) Feed(ctx context.Context, userID uint, rawPage string) (*Page[models.Post], error) {
	return s.posts.listing(ctx, rawPage, func(q *gorm.DB) *gorm.DB {
		followed := s.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
		return q.Where("author_id IN (?)", followed)
	})
}
