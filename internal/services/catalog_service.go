package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stillpoint_backend/internal/cache"
	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

// Catalog listings are read-heavy and change rarely; responses are cached
// with a short TTL and invalidated on every admin write.
const (
	catalogCacheSize = 256
	catalogCacheTTL  = 5 * time.Minute
)

type CatalogService interface {
	ListPublished(ctx context.Context, query *dto.SessionListQuery) (*dto.SessionListResponse, error)
	GetPublished(ctx context.Context, id string) (*dto.SessionDTO, error)

	// Admin operations. These see unpublished sessions and the media map.
	GetForAdmin(ctx context.Context, id string) (*dto.AdminSessionDTO, error)
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.AdminSessionDTO, error)
	Update(ctx context.Context, id string, req *dto.UpdateSessionRequest) (*dto.AdminSessionDTO, error)
	Delete(ctx context.Context, id string) error
}

type CatalogServiceImpl struct {
	sessionRepo repositories.SessionRepository
	listCache   *cache.Cache
}

func NewCatalogService(sessionRepo repositories.SessionRepository) CatalogService {
	return &CatalogServiceImpl{
		sessionRepo: sessionRepo,
		listCache:   cache.New(catalogCacheSize, catalogCacheTTL),
	}
}

func (s *CatalogServiceImpl) ListPublished(ctx context.Context, query *dto.SessionListQuery) (*dto.SessionListResponse, error) {
	limit, offset := query.Normalize()

	key := fmt.Sprintf("list:%s:%d:%d", query.Category, limit, offset)
	if cached, ok := s.listCache.Get(key); ok {
		return cached.(*dto.SessionListResponse), nil
	}

	sessions, total, err := s.sessionRepo.FindPublished(query.Category, limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.SessionListResponse{
		Sessions: make([]dto.SessionDTO, 0, len(sessions)),
		Meta:     dto.ListMeta{Page: query.Page, Limit: limit, Total: total},
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, dto.NewSessionDTO(&sessions[i]))
	}

	s.listCache.Set(key, resp)
	return resp, nil
}

func (s *CatalogServiceImpl) GetPublished(ctx context.Context, id string) (*dto.SessionDTO, error) {
	session, err := s.findSession(id)
	if err != nil {
		return nil, err
	}
	if !session.Published {
		return nil, apperrors.ErrSessionNotFound
	}

	d := dto.NewSessionDTO(session)
	return &d, nil
}

func (s *CatalogServiceImpl) GetForAdmin(ctx context.Context, id string) (*dto.AdminSessionDTO, error) {
	session, err := s.findSession(id)
	if err != nil {
		return nil, err
	}

	d := dto.NewAdminSessionDTO(session)
	return &d, nil
}

func (s *CatalogServiceImpl) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.AdminSessionDTO, error) {
	session := &models.Session{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		Currency:     req.Currency,
		RequiredTier: req.RequiredTier,
		IsFreeSample: req.IsFreeSample,
		Published:    req.Published,
		DurationMin:  req.DurationMin,
		ParentID:     req.ParentID,
		Position:     req.Position,
	}
	if session.Currency == "" {
		session.Currency = "AED"
	}
	if req.MediaURLs != nil {
		raw, err := json.Marshal(req.MediaURLs)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		session.MediaURLs = datatypes.JSON(raw)
	}

	if err := s.validateHierarchy(session.ID, session.ParentID); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.invalidate(ctx)

	d := dto.NewAdminSessionDTO(session)
	return &d, nil
}

func (s *CatalogServiceImpl) Update(ctx context.Context, id string, req *dto.UpdateSessionRequest) (*dto.AdminSessionDTO, error) {
	session, err := s.findSession(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.Category != nil {
		session.Category = *req.Category
	}
	if req.Price != nil {
		session.Price = *req.Price
	}
	if req.Currency != nil {
		session.Currency = *req.Currency
	}
	if req.RequiredTier != nil {
		session.RequiredTier = *req.RequiredTier
	}
	if req.IsFreeSample != nil {
		session.IsFreeSample = *req.IsFreeSample
	}
	if req.Published != nil {
		session.Published = *req.Published
	}
	if req.DurationMin != nil {
		session.DurationMin = *req.DurationMin
	}
	if req.Position != nil {
		session.Position = *req.Position
	}
	if req.MediaURLs != nil {
		raw, err := json.Marshal(*req.MediaURLs)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		session.MediaURLs = datatypes.JSON(raw)
	}
	if req.ParentID != nil {
		session.ParentID = req.ParentID
	}

	if err := s.validateHierarchy(session.ID, session.ParentID); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Update(session); err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	s.invalidate(ctx)

	return s.GetForAdmin(ctx, id)
}

func (s *CatalogServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.sessionRepo.Delete(id); err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return apperrors.ErrSessionNotFound
		}
		return apperrors.InternalError(err)
	}

	s.invalidate(ctx)
	return nil
}

// validateHierarchy enforces the single-level collection rule on every write
// path: a session that has children cannot itself get a parent, and a parent
// must not be a child of something else. Call sites never re-check this.
func (s *CatalogServiceImpl) validateHierarchy(sessionID string, parentID *string) error {
	if parentID == nil {
		return nil
	}

	if sessionID != "" && *parentID == sessionID {
		return apperrors.ErrInvalidHierarchy
	}

	parent, err := s.sessionRepo.FindByID(*parentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return apperrors.ErrInvalidHierarchy.WithDetails("parent session does not exist")
		}
		return apperrors.InternalError(err)
	}

	if parent.ParentID != nil {
		return apperrors.ErrInvalidHierarchy
	}

	if sessionID != "" {
		childCount, err := s.sessionRepo.CountChildren(sessionID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if childCount > 0 {
			return apperrors.ErrInvalidHierarchy
		}
	}

	return nil
}

func (s *CatalogServiceImpl) findSession(id string) (*models.Session, error) {
	session, err := s.sessionRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return session, nil
}

func (s *CatalogServiceImpl) invalidate(ctx context.Context) {
	s.listCache.Purge()
	logger.CtxDebug(ctx, "Catalog cache purged")
}
