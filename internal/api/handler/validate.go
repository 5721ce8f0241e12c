package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Rrens/storefront-gateway/internal/api/response"
	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/security"
)

// maxBodyBytes bounds inbound JSON bodies
const maxBodyBytes = 1 << 20

// Validator checks request bodies, including the storefront-specific tags
// shopdomain, apiversion and webhooktopic.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator bound to the storefront input patterns
func NewValidator(storefront *security.StorefrontValidator) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("shopdomain", func(fl validator.FieldLevel) bool {
		return storefront.ValidDomain(fl.Field().String())
	})
	_ = v.RegisterValidation("apiversion", func(fl validator.FieldLevel) bool {
		return storefront.ValidAPIVersion(fl.Field().String())
	})
	_ = v.RegisterValidation("webhooktopic", func(fl validator.FieldLevel) bool {
		return domain.IsWebhookTopic(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct validates s and returns a field -> message map on failure
func (v *Validator) Struct(s any) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"body": err.Error()}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = fieldMessage(e)
	}
	return fields
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "invalid email format"
	case "url":
		return "invalid url"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "eqfield":
		return "must match " + strings.ToLower(e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "shopdomain":
		return "invalid shop domain"
	case "apiversion":
		return "invalid api version, expected YYYY-MM"
	case "webhooktopic":
		return "unsupported webhook topic"
	default:
		return "validation failed on " + e.Tag()
	}
}

// bind decodes the JSON body into dst and validates it. It writes the error
// response and returns false when the request cannot proceed.
func (v *Validator) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}

	if fields := v.Struct(dst); fields != nil {
		response.ValidationFailed(w, fields)
		return false
	}
	return true
}
