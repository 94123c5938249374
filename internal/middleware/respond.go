package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
)

// Responder renders errors in the API's error shape. Outside production the
// cause of a transient failure is included in the message.
type Responder struct {
	log        zerolog.Logger
	production bool
}

func NewResponder(log zerolog.Logger, environment string) Responder {
	return Responder{log: log, production: environment == "production"}
}

func (r Responder) Error(c *gin.Context, err error) {
	body, status := r.render(c, err)
	c.AbortWithStatusJSON(status, body)
}

func (r Responder) render(c *gin.Context, err error) (gin.H, int) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.KindTransient, "internal_error", "Internal server error", err)
	}
	status := apperr.Status(appErr.Kind)

	body := gin.H{
		"error":   appErr.Code,
		"message": appErr.Message,
	}
	switch appErr.Kind {
	case apperr.KindValidation:
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	case apperr.KindStepUpRequired, apperr.KindStepUpInvalid:
		body["requires2FA"] = true
	case apperr.KindTransient:
		r.log.Error().
			Err(err).
			Str("request_id", c.Writer.Header().Get(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		if r.production {
			body["message"] = "An internal error occurred. Please try again later."
		} else if appErr.Err != nil {
			body["message"] = appErr.Message + ": " + appErr.Err.Error()
		}
	}
	return body, status
}

// BindError turns a gin binding failure into a validation error with one
// entry per offending field.
func BindError(err error) error {
	return apperr.Validation("Invalid request body", bindFields(err))
}

func bindFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe.Tag(), fe.Param())
		}
	}
	if len(fields) == 0 {
		fields["body"] = "must be valid JSON"
	}
	return fields
}

func describe(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + param
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	default:
		return "is invalid"
	}
}

var fieldNamesOnce sync.Once

// UseJSONFieldNames makes validation errors report json/form tag names
// instead of Go field names.
func UseJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

func TooManyRequests(c *gin.Context, retryAfter string) {
	if retryAfter != "" {
		c.Header("Retry-After", retryAfter)
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":   "rate_limited",
		"message": "Too many requests, slow down",
	})
}
