package model

import "time"

// Candidate represents an exam-taker account from the storefront.
type Candidate struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Age          int       `json:"age"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CandidateLoginRequest is the payload for candidate authentication.
type CandidateLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// CandidateLoginResponse is returned after successful candidate login.
type CandidateLoginResponse struct {
	Token     string    `json:"token"`
	Candidate Candidate `json:"candidate"`
}

// RegisterCandidateRequest is the payload for self-service registration.
// The same structural rules apply again inside the exam engine before a
// session may start.
type RegisterCandidateRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Age      int    `json:"age" binding:"required,gte=10,lte=100"`
	Address  string `json:"address" binding:"required,max=500"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// UpdateCandidateRequest is the payload for admin edits to a candidate.
type UpdateCandidateRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Age      int    `json:"age" binding:"required,gte=10,lte=100"`
	Address  string `json:"address" binding:"required,max=500"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
}
