package dto

import "stillpoint_backend/internal/models"

type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
}

type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,is-user-role"`
}

type UserListResponse struct {
	Users []UserDTO `json:"users"`
	Meta  ListMeta  `json:"meta"`
}

// DashboardResponse aggregates everything the customer dashboard shows in a
// single call.
type DashboardResponse struct {
	User      UserDTO       `json:"user"`
	Purchases []PurchaseDTO `json:"purchases"`
	Bookings  []BookingDTO  `json:"bookings"`
}
