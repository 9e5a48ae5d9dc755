package model

import "time"

// Account is a credential record owned by the account store.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CandidateProfile holds the identity and contact attributes captured at signup.
type CandidateProfile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	AdmissionNumber string    `json:"admission_number"`
	Branch          string    `json:"branch"`
	CreatedAt       time.Time `json:"created_at"`
}

// Principal is the authenticated identity resolved from a bearer token.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// SignupRequest is the payload for candidate registration.
type SignupRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	Email           string `json:"email" binding:"required,basic_email"`
	Phone           string `json:"phone" binding:"required,phone10"`
	AdmissionNumber string `json:"admission_number" binding:"required,admission6"`
	Branch          string `json:"branch" binding:"required"`
	Password        string `json:"password" binding:"required,max=128"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// LoginRequest is the payload for candidate authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,basic_email"`
	Password string `json:"password" binding:"required,max=128"`
}

// AuthResult is returned after a successful signup or login.
type AuthResult struct {
	Token     string            `json:"token,omitempty"`
	Principal Principal         `json:"user"`
	Profile   *CandidateProfile `json:"profile"`
}

// Branches lists the departments offered on the signup form.
var Branches = []string{
	"Computer Science Engineering",
	"Information Technology",
	"Electronics & Communication",
	"Mechanical Engineering",
	"Civil Engineering",
	"Electrical Engineering",
	"Chemical Engineering",
	"Biotechnology",
}
