package validator

import (
	"log"

	"stillpoint_backend/internal/auth"
	"stillpoint_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules wires the custom validation tags into the validator
// instance.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Startup error, the application must not run without its rules.
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'password': registration / reset password strength
	mustRegister("password", validatePassword)

	// 'is-user-role': valid account role
	mustRegister("is-user-role", validateUserRole)

	// 'is-booking-status': valid booking status
	mustRegister("is-booking-status", validateBookingStatus)
}

func validatePassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' covers empties
	}
	return auth.ValidatePassword(value) == nil
}

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.UserRole(value) {
	case models.UserRoleUser, models.UserRoleTeamMember, models.UserRoleAdmin:
		return true
	default:
		return false
	}
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.BookingStatus(value) {
	case models.BookingStatusRequested, models.BookingStatusConfirmed, models.BookingStatusCancelled:
		return true
	default:
		return false
	}
}
