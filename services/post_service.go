package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// PostService implements listing, detail, authoring and commenting.
type PostService struct {
	db        *gorm.DB
	pageSize  int
	mediaRoot string
}

// NewPostService builds a PostService using the page size and media root from config.
func NewPostService(db *gorm.DB) *PostService {
	cfg := config.Get()
	return &PostService{db: db, pageSize: cfg.PageSize, mediaRoot: cfg.MediaRoot}
}

// ImageUpload is an image submitted with a post form.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// PostInput carries the editable fields of a post.
type PostInput struct {
	Text       string
	GroupID    *uint
	Image      *ImageUpload
	ClearImage bool
}

// PostDetail is everything the detail page shows.
type PostDetail struct {
	Post            models.Post      `json:"post"`
	Comments        []models.Comment `json:"comments"`
	AuthorPostCount int64            `json:"author_post_count"`
}

// listing runs scope twice: once to count and once to fetch the resolved page.
func (s *PostService) listing(ctx context.Context, rawPage string, scope func(*gorm.DB) *gorm.DB) (*Page[models.Post], error) {
	var count int64
	if err := scope(s.db.WithContext(ctx).Model(&models.Post{})).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	number, numPages := ResolvePage(rawPage, count, s.pageSize)

	page := &Page[models.Post]{Number: number, NumPages: numPages, Count: count, PageSize: s.pageSize}
	err := scope(s.db.WithContext(ctx)).
		Preload("Author").
		Preload("Group").
		Order("pub_date DESC").Order("id DESC").
		Offset((number - 1) * s.pageSize).
		Limit(s.pageSize).
		Find(&page.Items).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return page, nil
}

// ListAll returns a page of every post, newest first.
func (s *PostService) ListAll(ctx context.Context, rawPage string) (*Page[models.Post], error) {
	return s.listing(ctx, rawPage, func(q *gorm.DB) *gorm.DB { return q })
}

// ListByGroup returns the group and a page of its posts.
func (s *PostService) ListByGroup(ctx context.Context, slug, rawPage string) (*models.Group, *Page[models.Post], error) {
	group, err := s.GroupBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.listing(ctx, rawPage, func(q *gorm.DB) *gorm.DB {
		return q.Where("group_id = ?", group.ID)
	})
	return group, page, err
}

// ListByAuthor returns the user and a page of their posts.
func (s *PostService) ListByAuthor(ctx context.Context, username, rawPage string) (*models.User, *Page[models.Post], error) {
	author, err := FindUser(ctx, s.db, username)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.listing(ctx, rawPage, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ?", author.ID)
	})
	return author, page, err
}

// Get loads a post with its author and group.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", id, err)
	}
	return &post, nil
}

// Detail loads a post, its comments oldest first and the author's post count.
func (s *PostService) Detail(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &PostDetail{Post: *post}
	err = s.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", id).
		Order("created ASC").Order("id ASC").
		Find(&d.Comments).Error
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", post.AuthorID).Count(&d.AuthorPostCount).Error; err != nil {
		return nil, fmt.Errorf("count author posts: %w", err)
	}
	return d, nil
}

// Validate checks a post submission without touching storage beyond lookups.
func (s *PostService) Validate(ctx context.Context, in PostInput) ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(in.Text) == "" {
		errs.Add("text", "This field is required.")
	}
	if in.GroupID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", *in.GroupID).Count(&n).Error; err != nil || n == 0 {
			errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	if in.Image != nil {
		if err := utils.ValidateImage(in.Image.Data); err != nil {
			errs.Add("image", err.Error())
		}
	}
	return errs
}

// Create validates and stores a new post owned by author.
func (s *PostService) Create(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if err := s.Validate(ctx, in).OrNil(); err != nil {
		return nil, err
	}
	post := &models.Post{
		Text:     strings.TrimSpace(in.Text),
		AuthorID: author.ID,
		GroupID:  in.GroupID,
	}
	stored, err := s.storeImage(in.Image)
	if err != nil {
		return nil, err
	}
	post.Image = stored

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if stored != "" {
			if err := tx.Create(&models.UploadedFile{RelPath: stored, UserID: author.ID}).Error; err != nil {
				return err
			}
		}
		return insertOutbox(tx, models.EventPostCreated, author.ID, post.ID, map[string]any{
			"author":   author.Username,
			"group_id": post.GroupID,
		})
	})
	if err != nil {
		s.discardImage(stored)
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.Author = *author
	return post, nil
}

// Edit updates text, group and image of a post. Only the author may edit.
func (s *PostService) Edit(ctx context.Context, editorID, postID uint, in PostInput) (*models.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != editorID {
		return post, ErrNotAuthor
	}
	if err := s.Validate(ctx, in).OrNil(); err != nil {
		return post, err
	}
	stored, err := s.storeImage(in.Image)
	if err != nil {
		return post, err
	}

	image := post.Image
	switch {
	case stored != "":
		image = stored
	case in.ClearImage:
		image = ""
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stored != "" {
			if err := tx.Create(&models.UploadedFile{RelPath: stored, UserID: editorID}).Error; err != nil {
				return err
			}
		}
		// replaced images stay on disk until the media cleaner sees them unreferenced
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			Select("text", "group_id", "image").
			Updates(map[string]any{
				"text":     strings.TrimSpace(in.Text),
				"group_id": in.GroupID,
				"image":    image,
			}).Error
	})
	if err != nil {
		s.discardImage(stored)
		return post, fmt.Errorf("edit post %d: %w", postID, err)
	}
	return s.Get(ctx, postID)
}

// AddComment attaches a comment by author to the post.
func (s *PostService) AddComment(ctx context.Context, authorID, postID uint, text string) (*models.Comment, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ValidationErrors{"text": {"This field is required."}}
	}
	c := &models.Comment{PostID: postID, AuthorID: authorID, Text: text}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := s.db.WithContext(ctx).Preload("Author").First(c, c.ID).Error; err != nil {
		return nil, fmt.Errorf("reload comment: %w", err)
	}
	return c, nil
}

// Groups lists every group ordered by title.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// GroupBySlug looks a group up by its slug.
func (s *PostService) GroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var g models.Group
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load group %q: %w", slug, err)
	}
	return &g, nil
}

// CreateGroup adds a group. Slugs are unique and never change afterwards.
func (s *PostService) CreateGroup(ctx context.Context, title, slug, description string) (*models.Group, error) {
	errs := ValidationErrors{}
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	if title == "" {
		errs.Add("title", "This field is required.")
	}
	if !slugPattern.MatchString(slug) {
		errs.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	} else if _, err := s.GroupBySlug(ctx, slug); err == nil {
		errs.Add("slug", "Group with this Slug already exists.")
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	g := &models.Group{Title: title, Slug: slug, Description: utils.Sanitize(description)}
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (s *PostService) storeImage(img *ImageUpload) (string, error) {
	if img == nil {
		return "", nil
	}
	rel, err := utils.SaveImageBytes(s.mediaRoot, img.Filename, img.Data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return rel, nil
}

func (s *PostService) discardImage(rel string) {
	if rel == "" {
		return
	}
	if err := utils.RemoveMedia(s.mediaRoot, rel); err != nil {
		utils.Sugar.Warnf("remove image %s: %v", rel, err)
	}
}

// FindUser loads an active user by username.
func FindUser(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	var u models.User
	err := db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %q: %w", username, err)
	}
	return &u, nil
}
