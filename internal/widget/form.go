package widget

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormInput is the snapshot of the three fields taken at submit time.
type FormInput struct {
	Name    string `json:"name" form:"name" validate:"required"`
	Email   string `json:"email" form:"email" validate:"required,html_email"`
	Message string `json:"message" form:"message" validate:"required"`
}

// IsZero reports whether every field is empty.
func (f FormInput) IsZero() bool {
	return f == FormInput{}
}

// htmlEmail is the valid e-mail address grammar of <input type=email>.
// Unlike RFC 5322 it accepts dotless domains such as user@intranet.
var htmlEmail = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("html_email", func(fl validator.FieldLevel) bool {
		return htmlEmail.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ConstraintError lists the fields that fail the form's input constraints.
type ConstraintError struct {
	Fields map[string]string
}

// Error implements the error interface
func (e *ConstraintError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range []string{"name", "email", "message"} {
		if msg, ok := e.Fields[field]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// Validate applies the same constraints as the page's inputs: every field is
// required and email must match the grammar browsers use for type=email.
// Bindings without a browser call it before submitting; the page relies on
// the browser instead.
func (f FormInput) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = fmt.Sprintf("%s is required", name)
		case "html_email":
			fields[name] = fmt.Sprintf("%s must be an email address", name)
		default:
			fields[name] = fmt.Sprintf("%s is invalid", name)
		}
	}
	return &ConstraintError{Fields: fields}
}
