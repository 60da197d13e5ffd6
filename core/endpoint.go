package core

// Operation IDs shared by the endpoint registry and HTTP adapters
const (
	OpLogin                = "loginWithEmailAndPassword"
	OpRegister             = "registerWithEmailAndPassword"
	OpRequestPasswordReset = "requestPasswordReset"
	OpConsumePasswordReset = "consumePasswordReset"
	OpRefreshToken         = "refreshToken"
	OpGetSession           = "getSession"
)

type Endpoint struct {
	Path     string
	Method   string
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	Protected   bool // requires a bearer token
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Message string `json:"message"`
}

// User-facing messages. These never carry internal detail.
const (
	MsgResetRequested  = "If the email is registered, you will receive a password reset email"
	MsgPasswordReset   = "Password has been reset successfully"
	MsgInternalError   = "An unexpected error occurred, please try again later"
	MsgInvalidBody     = "Invalid request body"
	MsgMissingToken    = "Missing authentication token"
	MsgBadAuthHeader   = "Invalid authorization header, expected 'Bearer <token>'"
	MsgNetworkError    = "Unable to reach the server, please try again"
	MsgInvalidSession  = "Session is invalid, please sign in again"
	MsgExpiredSession  = "Session has expired, please sign in again"
	MsgForbidden       = "You do not have permission to access this resource"
	MsgUserNotFound    = "User does not exist"
	MsgDuplicateEmail  = "This email is already registered"
	MsgBadCredentials  = "Incorrect email or password"
	MsgBadResetToken   = "Invalid or expired reset token"
	MsgLoginFailed     = "Login failed"
	MsgRefreshRejected = "Unable to refresh session"
)
