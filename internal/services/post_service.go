package services

import (
	"context"

	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"
)

type PostService interface {
	// Public, published-only views.
	ListPublished(ctx context.Context, query *dto.PaginationQuery) (*dto.PostListResponse, error)
	GetBySlug(ctx context.Context, slug string) (*dto.PostDTO, error)

	// Admin editor operations, drafts included.
	ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.PostListResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PostDTO, error)
	Create(ctx context.Context, req *dto.CreatePostRequest, authorEmail string) (*dto.PostDTO, error)
	Update(ctx context.Context, id string, req *dto.UpdatePostRequest) (*dto.PostDTO, error)
	Delete(ctx context.Context, id string) error
}

type PostServiceImpl struct {
	postRepo repositories.PostRepository
}

func NewPostService(postRepo repositories.PostRepository) PostService {
	return &PostServiceImpl{postRepo: postRepo}
}

func (s *PostServiceImpl) ListPublished(ctx context.Context, query *dto.PaginationQuery) (*dto.PostListResponse, error) {
	limit, offset := query.Normalize()

	posts, total, err := s.postRepo.FindPublished(limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return buildPostList(posts, total, query.Page, limit), nil
}

func (s *PostServiceImpl) GetBySlug(ctx context.Context, slug string) (*dto.PostDTO, error) {
	post, err := s.postRepo.FindBySlug(slug)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPostNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if !post.Published {
		return nil, apperrors.ErrNotFound(repositories.ErrPostNotFound)
	}

	d := dto.NewPostDTO(post, true)
	return &d, nil
}

func (s *PostServiceImpl) ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.PostListResponse, error) {
	limit, offset := query.Normalize()

	posts, total, err := s.postRepo.FindAll(limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return buildPostList(posts, total, query.Page, limit), nil
}

func (s *PostServiceImpl) GetByID(ctx context.Context, id string) (*dto.PostDTO, error) {
	post, err := s.postRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPostNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	d := dto.NewPostDTO(post, true)
	return &d, nil
}

func (s *PostServiceImpl) Create(ctx context.Context, req *dto.CreatePostRequest, authorEmail string) (*dto.PostDTO, error) {
	post := &models.Post{
		Slug:          req.Slug,
		Title:         req.Title,
		Excerpt:       req.Excerpt,
		Body:          req.Body,
		CoverImageURL: req.CoverImageURL,
		Published:     req.Published,
		AuthorEmail:   authorEmail,
	}

	if err := s.postRepo.Create(post); err != nil {
		if apperrors.Is(err, repositories.ErrPostAlreadyExists) {
			return nil, apperrors.ErrAlreadyExists(err)
		}
		return nil, apperrors.InternalError(err)
	}

	d := dto.NewPostDTO(post, true)
	return &d, nil
}

func (s *PostServiceImpl) Update(ctx context.Context, id string, req *dto.UpdatePostRequest) (*dto.PostDTO, error) {
	post, err := s.postRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPostNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	if req.Slug != nil {
		post.Slug = *req.Slug
	}
	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Excerpt != nil {
		post.Excerpt = *req.Excerpt
	}
	if req.Body != nil {
		post.Body = *req.Body
	}
	if req.CoverImageURL != nil {
		post.CoverImageURL = *req.CoverImageURL
	}
	if req.Published != nil {
		post.Published = *req.Published
	}

	if err := s.postRepo.Update(post); err != nil {
		if apperrors.Is(err, repositories.ErrPostNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	d := dto.NewPostDTO(post, true)
	return &d, nil
}

func (s *PostServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.postRepo.Delete(id); err != nil {
		if apperrors.Is(err, repositories.ErrPostNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func buildPostList(posts []models.Post, total int64, page, limit int) *dto.PostListResponse {
	resp := &dto.PostListResponse{
		Posts: make([]dto.PostDTO, 0, len(posts)),
		Meta:  dto.ListMeta{Page: page, Limit: limit, Total: total},
	}
	for i := range posts {
		resp.Posts = append(resp.Posts, dto.NewPostDTO(&posts[i], false))
	}
	return resp
}
