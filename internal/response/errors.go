package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden    ErrCode = "FORBIDDEN"
	ErrRoleRequired ErrCode = "ROLE_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Review workflow ───────────────────────────────────────────────
	ErrReasonRequired ErrCode = "REASON_REQUIRED"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrAssessmentNotAvailable ErrCode = "ASSESSMENT_NOT_AVAILABLE"
	ErrAttemptActive          ErrCode = "ATTEMPT_ALREADY_ACTIVE"
	ErrAttemptExpired         ErrCode = "ATTEMPT_EXPIRED"
	ErrUnknownQuestion        ErrCode = "UNKNOWN_QUESTION"

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
		return "Incorrect username or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrRoleRequired:
		return "This resource is restricted to another role."

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

	// ─── Review workflow ───────────────────────────────────────────────
	case ErrReasonRequired:
		return "A rejection requires a reason."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrAssessmentNotAvailable:
		return "This assessment is not currently available."
	case ErrAttemptActive:
		return "An unsubmitted attempt already exists for this assessment."
	case ErrAttemptExpired:
		return "The attempt deadline has passed."
	case ErrUnknownQuestion:
		return "The question does not belong to this attempt."

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
