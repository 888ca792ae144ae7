package services

import (
	"context"

	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"
)

type UserService interface {
	GetByID(ctx context.Context, id string) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserDTO, error)
	// Dashboard bundles the profile with the user's purchase and booking
	// history in one response.
	Dashboard(ctx context.Context, id string) (*dto.DashboardResponse, error)

	// Admin operations.
	ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.UserListResponse, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) (*dto.UserDTO, error)
}

type UserServiceImpl struct {
	userRepo     repositories.UserRepository
	purchaseRepo repositories.PurchaseRepository
	bookingRepo  repositories.BookingRepository
}

func NewUserService(
	userRepo repositories.UserRepository,
	purchaseRepo repositories.PurchaseRepository,
	bookingRepo repositories.BookingRepository,
) UserService {
	return &UserServiceImpl{
		userRepo:     userRepo,
		purchaseRepo: purchaseRepo,
		bookingRepo:  bookingRepo,
	}
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id string) (*dto.UserDTO, error) {
	user, err := s.findUser(id)
	if err != nil {
		return nil, err
	}

	d := dto.NewUserDTO(user)
	return &d, nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserDTO, error) {
	user, err := s.findUser(id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	d := dto.NewUserDTO(user)
	return &d, nil
}

func (s *UserServiceImpl) Dashboard(ctx context.Context, id string) (*dto.DashboardResponse, error) {
	user, err := s.findUser(id)
	if err != nil {
		return nil, err
	}

	purchases, err := s.purchaseRepo.ListByEmail(user.Email)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	bookings, err := s.bookingRepo.ListByEmail(user.Email)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.DashboardResponse{
		User:      dto.NewUserDTO(user),
		Purchases: make([]dto.PurchaseDTO, 0, len(purchases)),
		Bookings:  make([]dto.BookingDTO, 0, len(bookings)),
	}
	for i := range purchases {
		resp.Purchases = append(resp.Purchases, dto.NewPurchaseDTO(&purchases[i]))
	}
	for i := range bookings {
		resp.Bookings = append(resp.Bookings, dto.NewBookingDTO(&bookings[i]))
	}
	return resp, nil
}

func (s *UserServiceImpl) ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.UserListResponse, error) {
	limit, offset := query.Normalize()

	total, err := s.userRepo.CountAll()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	users, err := s.userRepo.FindAll(limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.UserListResponse{
		Users: make([]dto.UserDTO, 0, len(users)),
		Meta:  dto.ListMeta{Page: query.Page, Limit: limit, Total: total},
	}
	for i := range users {
		resp.Users = append(resp.Users, dto.NewUserDTO(&users[i]))
	}
	return resp, nil
}

func (s *UserServiceImpl) UpdateRole(ctx context.Context, id string, role models.UserRole) (*dto.UserDTO, error) {
	user, err := s.findUser(id)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	d := dto.NewUserDTO(user)
	return &d, nil
}

func (s *UserServiceImpl) findUser(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}
