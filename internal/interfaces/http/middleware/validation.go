package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dronestore/storefront/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator makes gin's validator report JSON (or form) field names
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	})
}

// FormatValidationErrors converts validator errors into a validation response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers a failed bind. Malformed JSON, oversized
// bodies and rule violations each get their own code.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var (
		maxErr    *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxErr):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID))
	case errors.As(err, &typeErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", requestID,
			[]dto.ValidationDetail{{Field: typeErr.Field, Message: "Must be a " + typeErr.Type.String()}}))
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
	}
}

// ruleMessages holds the message for each validator tag; %s is the rule's
// parameter. Length rules on strings get a " characters" suffix.
var ruleMessages = map[string]string{
	"required": "This field is required",
	"min":      "Must be at least %s",
	"gte":      "Must be at least %s",
	"max":      "Must be at most %s",
	"lte":      "Must be at most %s",
	"oneof":    "Must be one of: %s",
}

func getValidationMessage(e validator.FieldError) string {
	tmpl, ok := ruleMessages[e.Tag()]
	if !ok {
		return "Invalid value"
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	msg := fmt.Sprintf(tmpl, e.Param())
	if (e.Tag() == "min" || e.Tag() == "max") && e.Kind() == reflect.String {
		msg += " characters"
	}
	return msg
}
