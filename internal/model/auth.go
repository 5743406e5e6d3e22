package model

// LoginRequest represents login parameters
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents registration parameters forwarded to the API
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"omitempty,role"`
}

// TokenResponse is the token pair issued by the API
type TokenResponse struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// LoginResponse is the body returned by the API login endpoint
type LoginResponse struct {
	TokenResponse
	Token string `json:"token,omitempty"`
	User  *User  `json:"user"`
}

// Access returns whichever access token field the API populated.
func (r *LoginResponse) Access() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}
