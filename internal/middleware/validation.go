package middleware

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationConfig represents validation middleware configuration
type ValidationConfig struct {
	CustomValidators    map[string]validator.Func
	CustomErrorMessages map[string]string
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomValidators: map[string]validator.Func{
			"role": validateRole,
		},
		CustomErrorMessages: map[string]string{
			"required": "Field is required",
			"email":    "Invalid email format",
			"min":      "Value is too short",
			"max":      "Value is too long",
			"role":     "Unknown role",
		},
	}
}

func validateRole(fl validator.FieldLevel) bool {
	_, ok := model.ParseRole(fl.Field().String())
	return ok
}

var registerOnce sync.Once

// RegisterValidators installs the custom validators on gin's validator
// engine. Only the first call has an effect.
func RegisterValidators(config ValidationConfig) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range config.CustomValidators {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// Validation turns binding errors attached with c.Error into a 400 response
// listing the offending fields.
func Validation(config ValidationConfig) gin.HandlerFunc {
	RegisterValidators(config)

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var fields []ValidationError
		var cause error
		for _, e := range c.Errors {
			var errs validator.ValidationErrors
			if !stderrors.As(e.Err, &errs) {
				continue
			}
			cause = e.Err
			for _, fe := range errs {
				msg := config.CustomErrorMessages[fe.Tag()]
				if msg == "" {
					msg = fe.Error()
				}
				fields = append(fields, ValidationError{Field: fe.Field(), Message: msg})
			}
		}

		if len(fields) > 0 {
			httputil.RespondWithErrorDetails(c, errors.BadRequest("validation failed", cause), fields)
		}
	}
}
