package auth

import (
	"net/mail"

	passwordvalidator "github.com/wagslane/go-password-validator"

	"smilyweb/infrastructure"
)

// PasswordMinEntropyBits is the floor applied wherever a new credential is
// chosen.
const PasswordMinEntropyBits = 30

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r RegisterRequest) Validate() error {
	if len(r.Name) < 3 || len(r.Name) > 40 {
		return infrastructure.BadRequest("name must be between 3 and 40 characters")
	}
	if !validEmail(r.Email) {
		return infrastructure.BadRequest("please provide a valid email")
	}
	if err := passwordvalidator.Validate(r.Password, PasswordMinEntropyBits); err != nil {
		return infrastructure.BadRequest(err.Error())
	}
	if r.Password != r.ConfirmPassword {
		return infrastructure.BadRequest("passwords do not match")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if !validEmail(r.Email) || r.Password == "" {
		return infrastructure.BadRequest("email and password are required")
	}
	return nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}
