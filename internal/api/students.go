package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"membership/internal/badge"
	"membership/internal/student"
)

type updateStudentRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Gender    string `json:"gender" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Role      string `json:"role" binding:"required,oneof=admin student"`
	Password  string `json:"password" binding:"omitempty,min=8"`
}

func (s *server) listStudents(c *gin.Context) {
	list, err := s.Students.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": nonNil(list)})
}

func (s *server) getStudent(c *gin.Context) {
	st, err := s.Students.Get(c.Request.Context(), c.Param("id_number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// checkStudent answers whether an id number exists and with which role.
func (s *server) checkStudent(c *gin.Context) {
	var req struct {
		IDNumber string `json:"id_number" binding:"required,idnumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.Students.Get(c.Request.Context(), req.IDNumber)
	if errors.Is(err, student.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true, "role": st.Role, "name": st.FullName()})
}

func (s *server) updateStudent(c *gin.Context) {
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.Students.Update(c.Request.Context(), c.Param("id_number"), student.Changes{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Email:     req.Email,
		Role:      student.Role(req.Role),
		Password:  req.Password,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *server) deleteStudent(c *gin.Context) {
	if err := s.Students.Delete(c.Request.Context(), c.Param("id_number")); err != nil {
		s.fail(c, err)
		return
	}
	s.requestRecompute(c, "student deleted")
	c.Status(http.StatusNoContent)
}

func (s *server) myBadge(c *gin.Context) {
	s.writeBadge(c, caller(c))
}

func (s *server) studentBadge(c *gin.Context) {
	id := c.Param("id_number")
	if _, err := s.Students.Get(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.writeBadge(c, id)
}

func (s *server) writeBadge(c *gin.Context, idNumber string) {
	png, err := badge.PNG(idNumber, 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
