package handler

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"passwordConfirmation" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type phoneRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type updatePhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

type updateUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

type changePasswordRequest struct {
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"passwordConfirmation" binding:"required"`
}

type favorRequest struct {
	BusinessID string `json:"businessId" binding:"required"`
}

type authResponse struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

type userResponse struct {
	User map[string]any `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type favorsResponse struct {
	Favors []string `json:"favors"`
}
