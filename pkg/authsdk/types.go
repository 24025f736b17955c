package authsdk

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Auth
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// MFAToken is the current TOTP code. Only needed for admins with MFA enabled.
	MFAToken string `json:"mfaToken,omitempty"`
}

// LoginResponse is returned by POST /auth/login. Either RequireMFA is true
// (and nothing else is set apart from Message) or the tokens are present.
type LoginResponse struct {
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expiresIn,omitempty"`

	RequireMFA bool   `json:"requireMfa,omitempty"`
	Message    string `json:"message,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPairResponse is returned by POST /auth/refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// MessageResponse is a plain acknowledgement, e.g. from GET /auth/admin.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// MFA
// ============================================================================

// MFASetupResponse is returned by POST /auth/mfa/setup.
type MFASetupResponse struct {
	Secret string `json:"secret"`
	// OTPAuthURL is the otpauth:// provisioning URI.
	OTPAuthURL string `json:"otpauthUrl"`
	// QRCodeURL is a data:image/png;base64 URL of the provisioning URI.
	QRCodeURL string `json:"qrCodeUrl"`
}

// MFAVerifyRequest is the body of POST /auth/mfa/verify.
type MFAVerifyRequest struct {
	Token string `json:"token"`
}

// SuccessResponse is returned by the MFA verify and disable endpoints.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Users
// ============================================================================

// User is the public view of an identity. Password hashes and MFA secrets
// are never serialised.
type User struct {
	ID              string      `json:"id"`
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	IsEmailVerified bool        `json:"isEmailVerified"`
	Roles           []string    `json:"roles"`
	Profile         UserProfile `json:"profile"`
	MFAEnabled      bool        `json:"mfaEnabled"`
}

// UserProfile holds the optional display details of a user.
type UserProfile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string       `json:"password"`
	Roles    []string     `json:"roles,omitempty"`
	Profile  *UserProfile `json:"profile,omitempty"`
}

// UpdateUserRequest is the body of PUT /users/{id}. Absent fields are left
// unchanged; a present password is rehashed.
type UpdateUserRequest struct {
	Email           *string      `json:"email,omitempty"`
	IsEmailVerified *bool        `json:"isEmailVerified,omitempty"`
	Roles           []string     `json:"roles,omitempty"`
	Password        *string      `json:"password,omitempty"`
	Profile         *UserProfile `json:"profile,omitempty"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains individual component health checks (readyz only)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
