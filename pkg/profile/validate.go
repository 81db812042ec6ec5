package profile

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

// Draft is the locally edited field set. It is only sent once it validates.
type Draft struct {
	Name  string `json:"name" validate:"required,min=3"`
	Email string `json:"email" validate:"required,email"`
	Bio   string `json:"bio" validate:"min=3"`
}

// DraftFrom copies the editable fields of a stored profile.
func DraftFrom(u sdk.UserProfile) Draft {
	return Draft{Name: u.Name, Email: u.Email, Bio: u.Bio}
}

// Fields converts the draft to the update payload.
func (d Draft) Fields() sdk.ProfileFields {
	return sdk.ProfileFields{Name: d.Name, Email: d.Email, Bio: d.Bio}
}

// FieldError is one violated rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every FieldError found in a submission.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, " ")
}

// Field returns the message recorded for field, if any.
func (e *ValidationError) Field(field string) (string, bool) {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

var messages = map[string]string{
	"name":  "Name must be at least 3 characters long.",
	"email": "Invalid email address.",
	"bio":   "Bio must be at least 3 characters long.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field independently and returns all violations in
// field order, or nil when the draft is valid.
func Validate(d Draft) []FieldError {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := messages[field]
		if !ok {
			msg = fe.Error()
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	return out
}
