package models

// PublicUser is the part of a user record that may be sent to clients
type PublicUser struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterResponse represents the response after user registration
type RegisterResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    PublicUser `json:"user"`
}

// LoginResponse represents the response after a successful login
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}
