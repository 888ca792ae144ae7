package apperrors

import (
	"net/http"
)

// Factories and predefined errors for the business domains. Repositories
// return their own sentinel errors; services translate them into these.

// ErrNotFound converts a repository not-found into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a repository duplicate into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusConflict)
}

// --- Auth ---

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a special character",
	http.StatusBadRequest,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- Catalog ---

var ErrSessionNotFound = New(
	CodeNotFound,
	"catalog",
	"Session not found",
	http.StatusNotFound,
)

var ErrSessionNotPurchasable = New(
	CodeInvalidOperation,
	"catalog",
	"This session is not available for purchase",
	http.StatusBadRequest,
)

// ErrInvalidHierarchy guards the collection invariant: an item with children
// has no parent, and a child cannot carry children of its own.
var ErrInvalidHierarchy = New(
	CodeInvalidOperation,
	"catalog",
	"A collection cannot be nested inside another collection",
	http.StatusBadRequest,
)

// --- Payments ---

var ErrPaymentDeclined = New(
	CodePaymentDeclined,
	"payment",
	"Your card was declined",
	http.StatusPaymentRequired,
)

var ErrPaymentRateLimited = New(
	CodePaymentRateLimited,
	"payment",
	"Too many payment attempts, please try again shortly",
	http.StatusTooManyRequests,
)

var ErrPaymentInvalidRequest = New(
	CodePaymentInvalid,
	"payment",
	"The payment request could not be processed",
	http.StatusBadRequest,
)

var ErrPaymentProvider = New(
	CodeExternalServiceError,
	"payment",
	"Payment provider error",
	http.StatusServiceUnavailable,
)

var ErrWebhookSignature = New(
	CodeInvalidToken,
	"payment",
	"Webhook signature verification failed",
	http.StatusBadRequest,
)

// --- Entitlement ---

var ErrNotEntitled = New(
	CodeForbidden,
	"entitlement",
	"You do not have access to this session",
	http.StatusForbidden,
)

// --- Uploads ---

var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

// --- Bookings ---

var ErrBookingNotFound = New(
	CodeNotFound,
	"booking",
	"Booking not found",
	http.StatusNotFound,
)

var ErrBookingCancelled = New(
	CodeInvalidStatus,
	"booking",
	"Booking is already cancelled",
	http.StatusConflict,
)
