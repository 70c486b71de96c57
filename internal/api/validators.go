package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"membership/internal/event"
	"membership/internal/student"
)

const (
	eventNameTag = "eventname"
	idNumberTag  = "idnumber"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Use JSON tag names in errors.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation(eventNameTag, func(fl validator.FieldLevel) bool {
			return event.ValidName(fl.Field().String())
		})
		_ = v.RegisterValidation(idNumberTag, func(fl validator.FieldLevel) bool {
			return student.ValidIDNumber(fl.Field().String())
		})
	})
}

var tagMessages = map[string]string{
	"required":   "is required",
	"email":      "must be a valid email",
	"oneof":      "must be one of: ",
	"min":        "must be at least ",
	"gte":        "must be at least ",
	eventNameTag: "may only use letters, digits and '_'",
	idNumberTag:  "must contain digits only",
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.HasSuffix(msg, " ") {
			msg += fe.Param()
		}
		parts = append(parts, fe.Field()+" "+msg)
	}
	return strings.Join(parts, "; ")
}
