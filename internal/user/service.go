package user

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var ErrPasswordMismatch = errors.New("password does not match")

// Service owns every credential transition. Hashing happens here, on each
// write where the credential changed, never in the repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Repo() Repository {
	return s.repo
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) CreateUser(ctx context.Context, name, email, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &User{
		Name:     name,
		Email:    email,
		Password: hash,
	})
}

// ValidatePassword locates the user by email and compares the credential.
// Both failure modes collapse into ErrPasswordMismatch so callers cannot
// tell an unknown email from a wrong password.
func (s *Service) ValidatePassword(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrPasswordMismatch
	}
	if err != nil {
		return nil, err
	}
	if !ComparePassword(u.Password, password) {
		return nil, ErrPasswordMismatch
	}
	return u, nil
}

func (s *Service) UpdatePassword(ctx context.Context, id bson.ObjectID, currentPassword, newPassword string) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !ComparePassword(u.Password, currentPassword) {
		return ErrPasswordMismatch
	}
	if currentPassword == newPassword {
		return ErrPasswordMismatch
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, id, bson.M{"password": hash})
}

// ResetPassword finishes the reset flow: hash the new credential, persist
// it and clear the stored digest in one write.
func (s *Service) ResetPassword(ctx context.Context, id bson.ObjectID, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.ConsumeResetToken(ctx, id, hash)
}
