package users

import (
	"net/mail"
	"strings"
	"time"

	"github.com/s1natex/tasktracker-api/internal/web"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	UserName     string    `json:"userName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type NewUser struct {
	Email        string
	UserName     string
	PasswordHash string
}

// EditUser is a partial update; nil fields are left untouched.
type EditUser struct {
	UserName *string `json:"userName"`
	Email    *string `json:"email"`
}

func (e EditUser) Validate() error {
	var f web.Fields
	if e.UserName != nil && strings.TrimSpace(*e.UserName) == "" {
		f.Add("userName", "userName must not be empty")
	}
	if e.Email != nil {
		CheckEmail(&f, *e.Email)
	}
	return f.Err()
}

func (e EditUser) empty() bool {
	return e.UserName == nil && e.Email == nil
}

// normalized lower-cases the email so lookups are case-insensitive.
func (e EditUser) normalized() EditUser {
	if e.Email != nil {
		email := NormalizeEmail(*e.Email)
		e.Email = &email
	}
	return e
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckEmail adds a field error unless s is a bare, non-empty email address.
func CheckEmail(f *web.Fields, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		f.Add("email", "email is required")
		return
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		f.Add("email", "email must be a valid address")
	}
}
