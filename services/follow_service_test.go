package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/testutil"
)

func TestFollowIsUniqueAndRepeatable(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewFollowService(db, services.NewPostService(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "reader")
	author := testutil.CreateUser(t, db, "writer")

	_, created, err := svc.Follow(ctx, user.ID, "writer")
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = svc.Follow(ctx, user.ID, "writer")
	require.NoError(t, err)
	assert.False(t, created, "second follow is a no-op")

	var n int64
	db.Model(&models.Follow{}).Count(&n)
	assert.Equal(t, int64(1), n)

	following, err := svc.IsFollowing(ctx, user.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, following)

	_, deleted, err := svc.Unfollow(ctx, user.ID, "writer")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, deleted, err = svc.Unfollow(ctx, user.ID, "writer")
	require.NoError(t, err)
	assert.False(t, deleted, "unfollow is idempotent")

	_, created, err = svc.Follow(ctx, user.ID, "writer")
	require.NoError(t, err)
	assert.True(t, created, "can follow again after unfollowing")

	var events []models.SocialOutbox
	require.NoError(t, db.Order("id").Find(&events).Error)
	require.Len(t, events, 3)
	assert.Equal(t, models.EventFollowCreated, events[0].EventType)
	assert.Equal(t, models.EventFollowDeleted, events[1].EventType)
	assert.Equal(t, models.EventFollowCreated, events[2].EventType)
}

func TestFollowSelfAndMissing(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewFollowService(db, services.NewPostService(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "me")

	_, created, err := svc.Follow(ctx, user.ID, "me")
	assert.ErrorIs(t, err, services.ErrSelfFollow)
	assert.False(t, created)

	_, _, err = svc.Follow(ctx, user.ID, "ghost")
	assert.ErrorIs(t, err, services.ErrNotFound)

	var n int64
	db.Model(&models.Follow{}).Count(&n)
	assert.Zero(t, n)
}

func TestSelfFollowRejectedByStore(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "me")
	err := db.Create(&models.Follow{UserID: user.ID, AuthorID: user.ID}).Error
	assert.Error(t, err)
}

func TestConcurrentFollowsLeaveOneRow(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewFollowService(db, services.NewPostService(db))
	user := testutil.CreateUser(t, db, "reader")
	testutil.CreateUser(t, db, "writer")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Follow(context.Background(), user.ID, "writer")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var follows, events int64
	db.Model(&models.Follow{}).Count(&follows)
	db.Model(&models.SocialOutbox{}).Count(&events)
	assert.Equal(t, int64(1), follows)
	assert.Equal(t, int64(1), events)
}

func TestFeedShowsOnlyFollowedAuthors(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	svc := services.NewFollowService(db, services.NewPostService(db))
	ctx := context.Background()
	reader := testutil.CreateUser(t, db, "reader")
	loner := testutil.CreateUser(t, db, "loner")
	writer := testutil.CreateUser(t, db, "writer")
	stranger := testutil.CreateUser(t, db, "stranger")
	testutil.CreatePost(t, db, writer, nil, "followed post")
	testutil.CreatePost(t, db, stranger, nil, "unfollowed post")

	_, _, err := svc.Follow(ctx, reader.ID, "writer")
	require.NoError(t, err)

	feed, err := svc.Feed(ctx, reader.ID, "")
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "followed post", feed.Items[0].Text)

	empty, err := svc.Feed(ctx, loner.ID, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	stats, err := svc.Stats(ctx, writer.ID)
	require.NoError(t, err)
	assert.Equal(t, services.FollowStats{Followers: 1, Following: 0}, stats)
}
