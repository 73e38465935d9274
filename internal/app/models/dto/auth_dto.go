package dto

// RegisterRequest represents a self registration
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,password"`
	FirstName string `json:"firstName" binding:"omitempty,personname"`
	LastName  string `json:"lastName" binding:"omitempty,personname"`
	IsBB      bool   `json:"isBB"`
	Lehrjahr  *int   `json:"lehrjahr" binding:"omitempty,min=1,max=4"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login. The refresh token travels
// in a cookie only.
type AuthResponse struct {
	User        *UserResponse `json:"user"`
	AccessToken string        `json:"accessToken"`
}

// TokenResponse is returned by the refresh endpoint
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}
