package repositories

import (
	"errors"

	"stillpoint_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrPostAlreadyExists = errors.New("post with this slug already exists")
)

type PostRepository interface {
	FindByID(id string) (*models.Post, error)
	FindBySlug(slug string) (*models.Post, error)
	// FindPublished lists published posts newest first.
	FindPublished(limit, offset int) ([]models.Post, int64, error)
	FindAll(limit, offset int) ([]models.Post, int64, error)
	Create(post *models.Post) error
	Update(post *models.Post) error
	Delete(id string) error
}

type PostRepositoryImpl struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &PostRepositoryImpl{db: db}
}

func (r *PostRepositoryImpl) FindByID(id string) (*models.Post, error) {
	var post models.Post
	err := r.db.First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *PostRepositoryImpl) FindBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.First(&post, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *PostRepositoryImpl) FindPublished(limit, offset int) ([]models.Post, int64, error) {
	var posts []models.Post

	query := r.db.Model(&models.Post{}).Where("published = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, total, err
}

func (r *PostRepositoryImpl) FindAll(limit, offset int) ([]models.Post, int64, error) {
	var posts []models.Post

	var total int64
	if err := r.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, total, err
}

func (r *PostRepositoryImpl) Create(post *models.Post) error {
	var existing models.Post
	if err := r.db.Where("slug = ?", post.Slug).First(&existing).Error; err == nil {
		return ErrPostAlreadyExists
	}

	return r.db.Create(post).Error
}

func (r *PostRepositoryImpl) Update(post *models.Post) error {
	result := r.db.Model(post).Updates(map[string]interface{}{
		"slug":            post.Slug,
		"title":           post.Title,
		"excerpt":         post.Excerpt,
		"body":            post.Body,
		"cover_image_url": post.CoverImageURL,
		"published":       post.Published,
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *PostRepositoryImpl) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Post{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}
