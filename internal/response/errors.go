package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountExists      ErrCode = "ACCOUNT_EXISTS"
	ErrWeakCredential     ErrCode = "WEAK_CREDENTIAL"
	ErrInvalidEmail       ErrCode = "INVALID_EMAIL"
	ErrTooManyAttempts    ErrCode = "RATE_LIMITED"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminAccessOnly     ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation          ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload      ErrCode = "INVALID_PAYLOAD"
	ErrDuplicateIdentifier ErrCode = "DUPLICATE_IDENTIFIER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrProfileNotFound ErrCode = "PROFILE_NOT_FOUND"
	ErrNoResult        ErrCode = "NO_RESULT"

	// ─── Test session ──────────────────────────────────────────────────
	ErrNotYetAvailable  ErrCode = "NOT_YET_AVAILABLE"
	ErrWindowClosed     ErrCode = "WINDOW_CLOSED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrTestCancelled    ErrCode = "TEST_CANCELLED"
	ErrNotInProgress    ErrCode = "NOT_IN_PROGRESS"
	ErrInvalidAnswer    ErrCode = "INVALID_ANSWER"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrPersistence ErrCode = "PERSISTENCE_ERROR"
	ErrInternal    ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Account does not exist."
	case ErrAccountExists:
		return "Email already exists."
	case ErrWeakCredential:
		return "Password is too weak."
	case ErrInvalidEmail:
		return "Invalid email address."
	case ErrTooManyAttempts:
		return "Too many failed attempts. Please try again later."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrCandidateAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrDuplicateIdentifier:
		return "Admission number or phone number is already registered."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrProfileNotFound:
		return "User profile not found."
	case ErrNoResult:
		return "No test result found."

	// ─── Test session ──────────────────────────────────────────────────
	case ErrNotYetAvailable:
		return "The test has not started yet."
	case ErrWindowClosed:
		return "The test window has closed."
	case ErrAlreadySubmitted:
		return "You have already submitted this test."
	case ErrTestCancelled:
		return "Your test was cancelled due to excessive tab switching."
	case ErrNotInProgress:
		return "The test is not in progress."
	case ErrInvalidAnswer:
		return "Invalid answer selection."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrPersistence:
		return "Could not save your data. Please try again."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
