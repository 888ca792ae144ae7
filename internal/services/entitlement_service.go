package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/internal/storage"
	"stillpoint_backend/pkg/apperrors"
)

// signedMediaTTL bounds how long a handed-out media link stays valid.
const signedMediaTTL = time.Hour

// Access reasons reported to the client.
const (
	AccessReasonFree       = "free"
	AccessReasonSample     = "free_sample"
	AccessReasonPurchased  = "purchased"
	AccessReasonCollection = "collection_purchased"
	ReasonPurchaseRequired = "purchase_required"
)

// EntitlementService answers "may this email play this session" and hands
// out media URLs only on a positive answer.
type EntitlementService interface {
	CheckAccess(ctx context.Context, sessionID, userEmail string) (*dto.AccessResponse, error)
	MediaURL(ctx context.Context, sessionID, userEmail, lang string) (*dto.MediaURLResponse, error)
}

type EntitlementServiceImpl struct {
	sessionRepo  repositories.SessionRepository
	purchaseRepo repositories.PurchaseRepository
	store        storage.Storage
}

func NewEntitlementService(
	sessionRepo repositories.SessionRepository,
	purchaseRepo repositories.PurchaseRepository,
	store storage.Storage,
) EntitlementService {
	return &EntitlementServiceImpl{
		sessionRepo:  sessionRepo,
		purchaseRepo: purchaseRepo,
		store:        store,
	}
}

func (s *EntitlementServiceImpl) CheckAccess(ctx context.Context, sessionID, userEmail string) (*dto.AccessResponse, error) {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if !session.Published {
		return nil, apperrors.ErrSessionNotFound
	}

	if session.IsFreeSample {
		return s.grant(ctx, session, AccessReasonSample)
	}
	if session.IsFree() {
		return s.grant(ctx, session, AccessReasonFree)
	}

	if userEmail == "" {
		return deny(sessionID), nil
	}

	owned, err := s.purchaseRepo.HasCompletedForSession(session.ID, userEmail)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if owned {
		return s.grant(ctx, session, AccessReasonPurchased)
	}

	// A purchase of the parent collection covers every child item.
	if session.ParentID != nil {
		owned, err := s.purchaseRepo.HasCompletedForSession(*session.ParentID, userEmail)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if owned {
			return s.grant(ctx, session, AccessReasonCollection)
		}
	}

	return deny(sessionID), nil
}

// MediaURL resolves one playable link for one language. Unlike CheckAccess
// it refuses outright when the caller is not entitled.
func (s *EntitlementServiceImpl) MediaURL(ctx context.Context, sessionID, userEmail, lang string) (*dto.MediaURLResponse, error) {
	resp, err := s.CheckAccess(ctx, sessionID, userEmail)
	if err != nil {
		return nil, err
	}
	if !resp.Access {
		return nil, apperrors.ErrNotEntitled
	}

	if lang == "" {
		lang = "en"
	}
	url, ok := resp.MediaURLs[lang]
	if !ok {
		return nil, apperrors.NewBadRequestError("No media available for language: " + lang)
	}

	return &dto.MediaURLResponse{
		SessionID: sessionID,
		Language:  lang,
		URL:       url,
	}, nil
}

func deny(sessionID string) *dto.AccessResponse {
	return &dto.AccessResponse{
		SessionID: sessionID,
		Access:    false,
		Reason:    ReasonPurchaseRequired,
	}
}

func (s *EntitlementServiceImpl) grant(ctx context.Context, session *models.Session, reason string) (*dto.AccessResponse, error) {
	resp := &dto.AccessResponse{
		SessionID: session.ID,
		Access:    true,
		Reason:    reason,
	}

	if len(session.MediaURLs) == 0 {
		return resp, nil
	}

	var media map[string]string
	if err := json.Unmarshal(session.MediaURLs, &media); err != nil {
		logger.CtxWithError(ctx, "Malformed media map on session", err, "session_id", session.ID)
		return resp, nil
	}

	resp.MediaURLs = make(map[string]string, len(media))
	for lang, location := range media {
		resp.MediaURLs[lang] = s.mediaURL(ctx, location)
	}

	return resp, nil
}

// mediaURL resolves a stored location to something playable. Absolute URLs
// pass through untouched; bare keys are signed against the object store.
func (s *EntitlementServiceImpl) mediaURL(ctx context.Context, location string) string {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location
	}

	url, err := s.store.GetSignedURL(ctx, location, signedMediaTTL)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to sign media URL", err, "path", location)
		return location
	}
	return url
}
