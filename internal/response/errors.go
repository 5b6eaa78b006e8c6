package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden           ErrCode = "FORBIDDEN"
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminAccessOnly     ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrProductNotAvailable ErrCode = "PRODUCT_NOT_AVAILABLE"
	ErrProductNotPublished ErrCode = "PRODUCT_NOT_PUBLISHED"
	ErrProductNotDraft     ErrCode = "PRODUCT_NOT_DRAFT"
	ErrNotEntitled         ErrCode = "NOT_ENTITLED"
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrAttemptCompleted    ErrCode = "ATTEMPT_ALREADY_COMPLETED"
	ErrAttemptNotRunning   ErrCode = "ATTEMPT_NOT_RUNNING"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrProductNotAvailable:
		return "This mock test is currently not available."
	case ErrProductNotPublished:
		return "This mock test has not been published."
	case ErrProductNotDraft:
		return "This mock test is not in DRAFT status."
	case ErrNotEntitled:
		return "You have not purchased access to this mock test."
	case ErrNoQuestions:
		return "This mock test has no questions."
	case ErrAttemptCompleted:
		return "This mock test has already been submitted and graded."
	case ErrAttemptNotRunning:
		return "There is no running attempt for this mock test."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
