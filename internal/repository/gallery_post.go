// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"log/slog"

	"promptdoumi/internal/cache"
	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GalleryRepository defines the interface for gallery post data operations
type GalleryRepository interface {
	Create(ctx context.Context, post *models.GalleryPost) error
	GetByID(ctx context.Context, id uint) (*models.GalleryPost, error)
	List(ctx context.Context, limit, offset int) ([]*models.GalleryPost, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, post *models.GalleryPost) error
	Delete(ctx context.Context, id uint) error
}

// galleryRepository implements GalleryRepository
type galleryRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewGalleryRepository creates a new gallery repository. rdb may be nil,
// in which case list pages are not cached.
func NewGalleryRepository(db *gorm.DB, rdb *redis.Client) GalleryRepository {
	return &galleryRepository{db: db, rdb: rdb}
}

// cachedPost keeps the owner token, which the public JSON form omits.
type cachedPost struct {
	Post  models.GalleryPost `json:"post"`
	Owner *string            `json:"owner,omitempty"`
}

func (r *galleryRepository) invalidate(ctx context.Context) {
	if err := cache.InvalidateGalleryList(ctx, r.rdb); err != nil {
		middleware.Logger.WarnContext(ctx, "gallery list cache invalidation failed", slog.String("error", err.Error()))
	}
}

func (r *galleryRepository) Create(ctx context.Context, post *models.GalleryPost) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil {
		r.invalidate(ctx)
	}
	return err
}

func (r *galleryRepository) GetByID(ctx context.Context, id uint) (*models.GalleryPost, error) {
	var post models.GalleryPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *galleryRepository) List(ctx context.Context, limit, offset int) ([]*models.GalleryPost, error) {
	var page []cachedPost
	key := cache.GalleryListKey(ctx, r.rdb, limit, offset)

	err := cache.Aside(ctx, r.rdb, key, &page, cache.GalleryListTTL, func() error {
		var posts []*models.GalleryPost
		if err := r.db.WithContext(ctx).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error; err != nil {
			return err
		}
		page = make([]cachedPost, len(posts))
		for i, p := range posts {
			page[i] = cachedPost{Post: *p, Owner: p.OwnerToken}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	posts := make([]*models.GalleryPost, len(page))
	for i := range page {
		p := page[i].Post
		p.OwnerToken = page[i].Owner
		posts[i] = &p
	}
	return posts, nil
}

func (r *galleryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.GalleryPost{}).Count(&n).Error
	return n, err
}

// Update writes the editable columns of post. The owner token and creation
// time never change.
func (r *galleryRepository) Update(ctx context.Context, post *models.GalleryPost) error {
	res := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "media_url", "preview_url", "media_type", "author_name", "updated_at").
		Updates(post)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidate(ctx)
	return nil
}

func (r *galleryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.GalleryPost{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidate(ctx)
	return nil
}
