package auth

import (
	"strings"

	"github.com/s1natex/tasktracker-api/internal/users"
	"github.com/s1natex/tasktracker-api/internal/web"
)

const maxPasswordLen = 72 // bcrypt limit

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserName string `json:"userName"`
}

func (s SignupRequest) Validate() error {
	var f web.Fields
	users.CheckEmail(&f, s.Email)
	checkPassword(&f, s.Password)
	if strings.TrimSpace(s.UserName) == "" {
		f.Add("userName", "userName is required")
	}
	return f.Err()
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s SigninRequest) Validate() error {
	var f web.Fields
	users.CheckEmail(&f, s.Email)
	checkPassword(&f, s.Password)
	return f.Err()
}

func checkPassword(f *web.Fields, p string) {
	switch {
	case p == "":
		f.Add("password", "password is required")
	case len(p) > maxPasswordLen:
		f.Add("password", "password must be at most 72 bytes")
	}
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}
