package domain

import (
	"time"
)

// User represents a learner identity in the system.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	CourseID   string    `json:"course_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
