package user

import (
	"time"

	"go-regula/internal/common/models"
)

// User is a directory entry used for role-based notification routing.
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type CreateUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
