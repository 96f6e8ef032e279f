package dto

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest payload. Older clients send the code as
// verificationToken.
type VerifyEmailRequest struct {
	Email             string `json:"email"`
	Code              string `json:"code"`
	VerificationToken string `json:"verificationToken"`
}

// VerificationCode returns whichever code field was sent.
func (r VerifyEmailRequest) VerificationCode() string {
	if r.Code != "" {
		return r.Code
	}
	return r.VerificationToken
}

// EmailRequest payload for resend-verification and forgot-password.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest payload for confirming a reset.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	ResetToken  string `json:"resetToken"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// ResetCode returns whichever code field was sent.
func (r ResetPasswordRequest) ResetCode() string {
	if r.Code != "" {
		return r.Code
	}
	return r.ResetToken
}

// NewPasswordValue returns whichever password field was sent.
func (r ResetPasswordRequest) NewPasswordValue() string {
	if r.NewPassword != "" {
		return r.NewPassword
	}
	return r.Password
}

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SetActiveRequest payload for admin account suspension.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive"`
}
