package user

import (
	"strings"
	"time"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// UpdateProfileInput holds parameters for profile update operation.
// All fields are optional (nil = don't change).
type UpdateProfileInput struct {
	Name     *string
	Timezone *string
}

// Validate validates the update profile input and trims the name.
func (i *UpdateProfileInput) Validate() error {
	var errs []domain.FieldError

	if i.Name == nil && i.Timezone == nil {
		errs = append(errs, domain.FieldError{Field: "name", Message: "name or timezone is required"})
	}

	if i.Name != nil {
		name := strings.TrimSpace(*i.Name)
		i.Name = &name
		if name == "" {
			errs = append(errs, domain.FieldError{Field: "name", Message: "cannot be empty"})
		} else if len(name) > 255 {
			errs = append(errs, domain.FieldError{Field: "name", Message: "too long"})
		}
	}

	if i.Timezone != nil {
		if *i.Timezone == "" {
			errs = append(errs, domain.FieldError{Field: "timezone", Message: "cannot be empty"})
		} else if len(*i.Timezone) > 64 {
			errs = append(errs, domain.FieldError{Field: "timezone", Message: "too long"})
		} else if _, err := time.LoadLocation(*i.Timezone); err != nil {
			errs = append(errs, domain.FieldError{Field: "timezone", Message: "invalid IANA timezone"})
		}
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
