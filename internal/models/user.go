package models

// User represents a system user participating in the credit workflow.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	BranchID     int64  `json:"branch_id"`
	Active       bool   `json:"active"`
	PasswordHash string `json:"-"` // Not serialized
}
