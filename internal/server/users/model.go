// Package users implements user management on top of an external identity
// backend and a blob store for profile photos. The Repository façade
// normalizes backend representations into the domain model; the Service adds
// input validation and shields callers from backend outages.
package users

import "fmt"

// Role is the application-level role of a user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole maps a raw role name onto a known Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is the domain view of an account. Password is only populated on the
// way in (signup, update); reads always leave it empty.
type User struct {
	ID           string `json:"id,omitempty"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password,omitempty"`
	Role         Role   `json:"role"`
	ProfilePhoto string `json:"profilePhoto"`
}

// Summary is the read-side projection of a user, without credentials.
type Summary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	ProfilePhoto string `json:"profilePhoto"`
}

// Summary strips the password from a user.
func (u *User) Summary() Summary {
	return Summary{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		ProfilePhoto: u.ProfilePhoto,
	}
}

// Photo is an uploaded profile image.
type Photo struct {
	Data        []byte
	ContentType string
	Filename    string
}

// AccessToken wraps a bearer token issued by the identity backend.
type AccessToken struct {
	Token string `json:"access_token"`
}

// Page is one window of a paginated listing. TotalPages is always derived
// from TotalElements and Size, never stored.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage assembles a page envelope, computing TotalPages as the ceiling of
// TotalElements divided by Size.
func NewPage[T any](content []T, page, size int, totalElements int64) Page[T] {
	totalPages := 0
	if size > 0 {
		totalPages = int((totalElements + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: totalElements,
		TotalPages:    totalPages,
	}
}
