package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator. Field errors are reported
// by their JSON name.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// decodeRequest reads a JSON body into v and validates it. On failure it
// writes the response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.ReadJSON(w, r, v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "request body must be a single valid JSON object")
		return false
	}

	err := validatorInstance().Struct(v)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error())
		return false
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describeFieldError(fe)
	}
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ValidationErrorResponse{
		Code:    authsdk.ErrorCodeValidation,
		Message: "validation failed for some fields",
		Details: details,
	})
	return false
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		return "too short (min " + fe.Param() + ")"
	case "max":
		return "too long (max " + fe.Param() + ")"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "invalid"
	}
}
