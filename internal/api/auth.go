package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"membership/internal/auth"
	"membership/internal/student"
)

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Gender    string `json:"gender" binding:"required"`
	IDNumber  string `json:"id_number" binding:"required,idnumber"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    int64           `json:"expires_at"`
	Student      student.Student `json:"student"`
}

// register creates a student account; admins are made with cmd/admin.
func (s *server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.Students.Register(c.Request.Context(), student.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		IDNumber:  req.IDNumber,
		Email:     req.Email,
		Password:  req.Password,
		Role:      student.RoleStudent,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.issue(c, http.StatusCreated, st)
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.Students.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.issue(c, http.StatusOK, st)
}

func (s *server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.Signer.Parse(req.RefreshToken, auth.KindRefresh); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	st, err := s.Students.RotateRefreshToken(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, student.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "refresh token revoked or expired"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.issue(c, http.StatusOK, st)
}

func (s *server) issue(c *gin.Context, status int, st student.Student) {
	tokens, err := s.Signer.Issue(st.IDNumber, string(st.Role))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Students.RememberRefreshToken(c.Request.Context(), st.IDNumber, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.AccessExp.Unix(),
		Student:      st,
	})
}

func caller(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.IDNumber()
}

func (s *server) me(c *gin.Context) {
	st, err := s.Students.Get(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *server) changePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Students.ChangePassword(c.Request.Context(), caller(c), req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) verifyPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	ok, err := s.Students.VerifyPassword(c.Request.Context(), caller(c), req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}
