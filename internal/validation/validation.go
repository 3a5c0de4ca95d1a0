// Package validation wraps go-playground/validator with the request-level
// messages the API returns for each invalid field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one invalid field in a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by Struct when at least one field fails.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Messages for specific field/tag pairs, keyed "<json field>.<tag>".
var messages = map[string]string{
	"name.required":     "Name is Required",
	"name.notblank":     "Name is Required",
	"email.required":    "Please enter a valid email",
	"email.email":       "Please enter a valid email",
	"password.required": "Password is required",
	"password.min":      "Please enter a password with 8 or more characters",
	"text.required":     "Text is required",
	"text.notblank":     "Text is required",
	"followId.required": "followId is required",
	"followId.objectid": "followId must be a valid id",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// required accepts whitespace; notblank does not
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})

	return v
}

// Struct validates s against its `validate` tags. It returns *Error when a
// field fails and a plain error when s cannot be validated at all.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "objectid":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}
