package services

import (
	"context"
	"encoding/json"
	"time"

	"stillpoint_backend/internal/email"
	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

type BookingService interface {
	Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingDTO, error)
	ListForEmail(ctx context.Context, email string) ([]dto.BookingDTO, error)
	ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.BookingListResponse, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (*dto.BookingDTO, error)
	Cancel(ctx context.Context, id, requesterEmail string) error
}

type BookingServiceImpl struct {
	bookingRepo   repositories.BookingRepository
	sessionRepo   repositories.SessionRepository
	emailProvider email.Provider
}

func NewBookingService(
	bookingRepo repositories.BookingRepository,
	sessionRepo repositories.SessionRepository,
	emailProvider email.Provider,
) BookingService {
	return &BookingServiceImpl{
		bookingRepo:   bookingRepo,
		sessionRepo:   sessionRepo,
		emailProvider: emailProvider,
	}
}

func (s *BookingServiceImpl) Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingDTO, error) {
	session, err := s.sessionRepo.FindByID(req.SessionID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if !session.Published {
		return nil, apperrors.ErrSessionNotFound
	}

	if req.ScheduledAt.Before(time.Now()) {
		return nil, apperrors.ErrInvalidOperation("booking", "Cannot book a slot in the past")
	}

	booking := &models.SessionBooking{
		SessionID:   session.ID,
		Email:       req.Email,
		Name:        req.Name,
		ScheduledAt: req.ScheduledAt,
		Status:      models.BookingStatusRequested,
	}
	if req.Notes != nil {
		raw, err := json.Marshal(req.Notes)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		booking.Notes = datatypes.JSON(raw)
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.sendConfirmation(ctx, booking, session.Title)

	d := dto.NewBookingDTO(booking)
	return &d, nil
}

func (s *BookingServiceImpl) ListForEmail(ctx context.Context, emailAddr string) ([]dto.BookingDTO, error) {
	bookings, err := s.bookingRepo.ListByEmail(emailAddr)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := make([]dto.BookingDTO, 0, len(bookings))
	for i := range bookings {
		result = append(result, dto.NewBookingDTO(&bookings[i]))
	}
	return result, nil
}

func (s *BookingServiceImpl) ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.BookingListResponse, error) {
	limit, offset := query.Normalize()

	bookings, total, err := s.bookingRepo.ListAll(limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.BookingListResponse{
		Bookings: make([]dto.BookingDTO, 0, len(bookings)),
		Meta:     dto.ListMeta{Page: query.Page, Limit: limit, Total: total},
	}
	for i := range bookings {
		resp.Bookings = append(resp.Bookings, dto.NewBookingDTO(&bookings[i]))
	}
	return resp, nil
}

func (s *BookingServiceImpl) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (*dto.BookingDTO, error) {
	booking, err := s.bookingRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrBookingNotFound) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	// Cancelled is terminal.
	if booking.Status == models.BookingStatusCancelled {
		return nil, apperrors.ErrBookingCancelled
	}

	if err := s.bookingRepo.UpdateStatus(id, status); err != nil {
		return nil, apperrors.InternalError(err)
	}

	booking.Status = status
	d := dto.NewBookingDTO(booking)
	return &d, nil
}

// Cancel lets a customer withdraw their own booking; the email must match.
func (s *BookingServiceImpl) Cancel(ctx context.Context, id, requesterEmail string) error {
	booking, err := s.bookingRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrBookingNotFound) {
			return apperrors.ErrBookingNotFound
		}
		return apperrors.InternalError(err)
	}

	if booking.Email != requesterEmail {
		return apperrors.ErrInsufficientPermissions
	}
	if booking.Status == models.BookingStatusCancelled {
		return apperrors.ErrBookingCancelled
	}

	if err := s.bookingRepo.UpdateStatus(id, models.BookingStatusCancelled); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *BookingServiceImpl) sendConfirmation(ctx context.Context, booking *models.SessionBooking, sessionTitle string) {
	body, err := email.Render("booking_received", email.TemplateData{
		"Name":         booking.Name,
		"SessionTitle": sessionTitle,
		"ScheduledAt":  booking.ScheduledAt.Format("2 January 2006, 15:04 MST"),
	})
	if err != nil {
		logger.CtxWithError(ctx, "Failed to render booking email", err)
		return
	}

	if err := s.emailProvider.Send(&email.Message{
		To:       booking.Email,
		Subject:  "We received your booking request",
		HTMLBody: body,
	}); err != nil {
		logger.CtxWithError(ctx, "Failed to send booking email", err, "to", booking.Email)
	}
}
