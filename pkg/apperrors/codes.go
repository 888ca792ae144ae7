package apperrors

// ErrorCode identifies a class of application error.
type ErrorCode string

// Cross-cutting error codes. Domain packages attach their own context via the
// Domain field rather than minting new codes.
const (
	// System / unknown
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business logic
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Authentication / authorization
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"

	// Payments
	CodePaymentDeclined    ErrorCode = "PAYMENT_DECLINED"
	CodePaymentRateLimited ErrorCode = "PAYMENT_RATE_LIMITED"
	CodePaymentInvalid     ErrorCode = "PAYMENT_INVALID_REQUEST"
	CodePaymentFailed      ErrorCode = "PAYMENT_FAILED"
)
