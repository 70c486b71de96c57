package student

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("student not found")
	ErrDuplicate          = errors.New("id number or email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordMismatch   = errors.New("current password does not match")
	ErrInvalidRole        = errors.New("role must be admin or student")
	ErrInvalidIDNumber    = errors.New("id number must contain digits only")
	ErrMissingField       = errors.New("all fields are required")
)

var idNumberPattern = regexp.MustCompile(`^[0-9]+$`)

// Role gates dashboard access.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// Student is a member of the organization. Admins are students with the admin role.
type Student struct {
	StudentID    int64     `json:"student_id"`
	IDNumber     string    `json:"id_number"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Gender       string    `json:"gender"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// IsAdmin reports whether the student holds the admin role.
func (s Student) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// SetPassword hashes pwd with bcrypt.
func (s *Student) SetPassword(pwd string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), cost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares pwd against the stored hash.
func (s Student) CheckPassword(pwd string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(pwd)) == nil
}

// ValidIDNumber reports whether id is a well-formed id number.
func ValidIDNumber(id string) bool {
	return idNumberPattern.MatchString(id)
}

// Registration carries the fields of a new account.
type Registration struct {
	FirstName string
	LastName  string
	Gender    string
	IDNumber  string
	Email     string
	Password  string
	Role      Role
}

func (r Registration) validate() error {
	if r.FirstName == "" || r.LastName == "" || r.Gender == "" || r.IDNumber == "" || r.Email == "" || r.Password == "" {
		return ErrMissingField
	}
	if !ValidIDNumber(r.IDNumber) {
		return ErrInvalidIDNumber
	}
	if r.Role != "" && !r.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// Changes is an admin edit of a student. Empty Password keeps the current one.
type Changes struct {
	FirstName string
	LastName  string
	Gender    string
	Email     string
	Role      Role
	Password  string
}

// Repository persists students and their refresh tokens.
type Repository interface {
	Create(ctx context.Context, s Student) (Student, error)
	Get(ctx context.Context, idNumber string) (Student, error)
	GetByEmail(ctx context.Context, email string) (Student, error)
	List(ctx context.Context) ([]Student, error)
	IDNumbers(ctx context.Context) ([]string, error)
	Update(ctx context.Context, s Student) error
	UpdatePassword(ctx context.Context, idNumber, hash string) error
	Delete(ctx context.Context, idNumber string) error

	SaveRefreshToken(ctx context.Context, idNumber, token string, expiresAt time.Time) error
	// ConsumeRefreshToken revokes an active token and returns its owner.
	ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error)
}
