package student

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Service coordinates account registration, login and profile changes.
type Service struct {
	repo Repository
	cost int
	log  zerolog.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, bcryptCost int, log zerolog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: bcryptCost, log: log}
}

// Register creates a new account. The role defaults to student.
func (s *Service) Register(ctx context.Context, reg Registration) (Student, error) {
	reg.Email = normalizeEmail(reg.Email)
	reg.IDNumber = strings.TrimSpace(reg.IDNumber)
	if err := reg.validate(); err != nil {
		return Student{}, err
	}
	if reg.Role == "" {
		reg.Role = RoleStudent
	}

	st := Student{
		IDNumber:  reg.IDNumber,
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		Gender:    strings.TrimSpace(reg.Gender),
		Email:     reg.Email,
		Role:      reg.Role,
	}
	if err := st.SetPassword(reg.Password, s.cost); err != nil {
		return Student{}, err
	}
	created, err := s.repo.Create(ctx, st)
	if err != nil {
		return Student{}, err
	}
	s.log.Info().Str("id_number", created.IDNumber).Str("role", string(created.Role)).Msg("student registered")
	return created, nil
}

// Authenticate returns the student matching email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Student, error) {
	if email == "" || password == "" {
		return Student{}, ErrInvalidCredentials
	}
	st, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return Student{}, ErrInvalidCredentials
	}
	if err != nil {
		return Student{}, err
	}
	if !st.CheckPassword(password) {
		return Student{}, ErrInvalidCredentials
	}
	return st, nil
}

// Get returns a student by id number.
func (s *Service) Get(ctx context.Context, idNumber string) (Student, error) {
	return s.repo.Get(ctx, idNumber)
}

// List returns every student ordered by id number.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.List(ctx)
}

// IDNumbers returns every id number on the roster.
func (s *Service) IDNumbers(ctx context.Context) ([]string, error) {
	return s.repo.IDNumbers(ctx)
}

// Update applies an admin edit.
func (s *Service) Update(ctx context.Context, idNumber string, ch Changes) (Student, error) {
	if ch.FirstName == "" || ch.LastName == "" || ch.Gender == "" || ch.Email == "" {
		return Student{}, ErrMissingField
	}
	if !ch.Role.Valid() {
		return Student{}, ErrInvalidRole
	}
	st, err := s.repo.Get(ctx, idNumber)
	if err != nil {
		return Student{}, err
	}
	st.FirstName = strings.TrimSpace(ch.FirstName)
	st.LastName = strings.TrimSpace(ch.LastName)
	st.Gender = strings.TrimSpace(ch.Gender)
	st.Email = normalizeEmail(ch.Email)
	st.Role = ch.Role
	if ch.Password != "" {
		if err := st.SetPassword(ch.Password, s.cost); err != nil {
			return Student{}, err
		}
	}
	if err := s.repo.Update(ctx, st); err != nil {
		return Student{}, err
	}
	s.log.Info().Str("id_number", idNumber).Msg("student updated")
	return st, nil
}

// Delete removes a student together with attendance, payment and sanction rows.
func (s *Service) Delete(ctx context.Context, idNumber string) error {
	if err := s.repo.Delete(ctx, idNumber); err != nil {
		return err
	}
	s.log.Info().Str("id_number", idNumber).Msg("student deleted")
	return nil
}

// VerifyPassword reports whether current matches the stored password.
func (s *Service) VerifyPassword(ctx context.Context, idNumber, current string) (bool, error) {
	st, err := s.repo.Get(ctx, idNumber)
	if err != nil {
		return false, err
	}
	return st.CheckPassword(current), nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, idNumber, current, next string) error {
	if current == "" || next == "" {
		return ErrMissingField
	}
	st, err := s.repo.Get(ctx, idNumber)
	if err != nil {
		return err
	}
	if !st.CheckPassword(current) {
		return ErrPasswordMismatch
	}
	if err := st.SetPassword(next, s.cost); err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, idNumber, st.PasswordHash)
}

// ResetPassword sets a new password without the current one. Used by the admin CLI.
func (s *Service) ResetPassword(ctx context.Context, idNumber, next string) error {
	if next == "" {
		return ErrMissingField
	}
	st, err := s.repo.Get(ctx, idNumber)
	if err != nil {
		return err
	}
	if err := st.SetPassword(next, s.cost); err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, idNumber, st.PasswordHash)
}

// RememberRefreshToken stores an issued refresh token for rotation.
func (s *Service) RememberRefreshToken(ctx context.Context, idNumber, token string, expiresAt time.Time) error {
	return s.repo.SaveRefreshToken(ctx, idNumber, token, expiresAt)
}

// RotateRefreshToken revokes token and returns the owning student.
func (s *Service) RotateRefreshToken(ctx context.Context, token string) (Student, error) {
	idNumber, err := s.repo.ConsumeRefreshToken(ctx, token, time.Now().UTC())
	if err != nil {
		return Student{}, err
	}
	return s.repo.Get(ctx, idNumber)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
