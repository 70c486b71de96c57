package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membership/internal/store/memory"
	"membership/internal/student"
)

func newService() *student.Service {
	return student.NewService(memory.New().Students(), 4, zerolog.Nop())
}

func registration() student.Registration {
	return student.Registration{
		FirstName: "Ana", LastName: "Cruz", Gender: "F",
		IDNumber: "2021001", Email: " Ana@School.edu ", Password: "password123",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	st, err := svc.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, student.RoleStudent, st.Role)
	assert.Equal(t, "ana@school.edu", st.Email)
	assert.NotEqual(t, "password123", st.PasswordHash)
	assert.True(t, st.CheckPassword("password123"))

	_, err = svc.Register(ctx, registration())
	assert.ErrorIs(t, err, student.ErrDuplicate)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*student.Registration)
		want   error
	}{
		{"missing name", func(r *student.Registration) { r.FirstName = "" }, student.ErrMissingField},
		{"letters in id", func(r *student.Registration) { r.IDNumber = "20A1" }, student.ErrInvalidIDNumber},
		{"unknown role", func(r *student.Registration) { r.Role = "owner" }, student.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registration()
			tt.modify(&reg)
			_, err := newService().Register(context.Background(), reg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.Register(ctx, registration())
	require.NoError(t, err)

	st, err := svc.Authenticate(ctx, "ANA@school.edu", "password123")
	require.NoError(t, err)
	assert.Equal(t, "2021001", st.IDNumber)

	_, err = svc.Authenticate(ctx, "ana@school.edu", "wrong")
	assert.ErrorIs(t, err, student.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@school.edu", "password123")
	assert.ErrorIs(t, err, student.ErrInvalidCredentials)
}

func TestPasswords(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.Register(ctx, registration())
	require.NoError(t, err)

	ok, err := svc.VerifyPassword(ctx, "2021001", "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "2021001", "bad", "next-password"), student.ErrPasswordMismatch)
	require.NoError(t, svc.ChangePassword(ctx, "2021001", "password123", "next-password"))
	_, err = svc.Authenticate(ctx, "ana@school.edu", "next-password")
	assert.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "2021001", "reset-password"))
	_, err = svc.Authenticate(ctx, "ana@school.edu", "reset-password")
	assert.NoError(t, err)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "404", "x"), student.ErrNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.Register(ctx, registration())
	require.NoError(t, err)

	st, err := svc.Update(ctx, "2021001", student.Changes{FirstName: "Ana", LastName: "Santos", Gender: "F", Email: "ana@school.edu", Role: student.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, st.IsAdmin())
	assert.Equal(t, "Ana Santos", st.FullName())
	assert.True(t, st.CheckPassword("password123"), "empty password keeps the old one")

	_, err = svc.Update(ctx, "2021001", student.Changes{FirstName: "Ana", LastName: "Santos", Gender: "F", Email: "ana@school.edu", Role: "owner"})
	assert.ErrorIs(t, err, student.ErrInvalidRole)

	require.NoError(t, svc.Delete(ctx, "2021001"))
	assert.ErrorIs(t, svc.Delete(ctx, "2021001"), student.ErrNotFound)
}

func TestRefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.Register(ctx, registration())
	require.NoError(t, err)

	require.NoError(t, svc.RememberRefreshToken(ctx, "2021001", "tok-1", time.Now().Add(time.Hour)))
	st, err := svc.RotateRefreshToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "2021001", st.IDNumber)

	_, err = svc.RotateRefreshToken(ctx, "tok-1")
	assert.ErrorIs(t, err, student.ErrNotFound)

	require.NoError(t, svc.RememberRefreshToken(ctx, "2021001", "tok-old", time.Now().Add(-time.Minute)))
	_, err = svc.RotateRefreshToken(ctx, "tok-old")
	assert.ErrorIs(t, err, student.ErrNotFound)
}
