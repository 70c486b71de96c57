package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"membership/internal/attendance"
	"membership/internal/badge"
	"membership/internal/event"
	"membership/internal/payment"
	"membership/internal/sanction"
	"membership/internal/student"
)

var (
	notFound = []error{
		student.ErrNotFound, event.ErrNotFound, sanction.ErrNotFound,
		sanction.ErrNotListed, payment.ErrNotFound,
	}
	conflict = []error{
		student.ErrDuplicate, event.ErrDuplicate, attendance.ErrAlreadyRecorded,
		sanction.ErrConflict, sanction.ErrRecomputeInProgress, payment.ErrAlreadyPaid,
	}
	badRequest = []error{
		student.ErrMissingField, student.ErrInvalidIDNumber, student.ErrInvalidRole,
		student.ErrPasswordMismatch, event.ErrInvalidName, event.ErrMissingDate,
		attendance.ErrInvalidSlot, payment.ErrInvalidStatus, badge.ErrEmpty,
	}
	unavailable = []error{payment.ErrNoGateway, payment.ErrNoUploader}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		cfgErr      *sanction.ConfigurationError
		lookupErr   *sanction.LookupError
		upstreamErr *payment.UpstreamError
		valErrs     validator.ValidationErrors
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &lookupErr):
		return http.StatusInternalServerError
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.Is(err, student.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, unavailable):
		return http.StatusServiceUnavailable
	case isAny(err, badRequest),
		errors.As(err, &cfgErr),
		errors.As(err, &valErrs),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		msg = validationMessage(valErrs)
	}
	if status == http.StatusInternalServerError {
		s.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		var lookupErr *sanction.LookupError
		if !errors.As(err, &lookupErr) {
			msg = "internal error"
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *server) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
