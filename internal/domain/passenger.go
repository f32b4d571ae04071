package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// PassengerDetails is what the booking form collects before a hold is requested.
type PassengerDetails struct {
	Name   string `json:"name" validate:"required,min=2,max=120"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone,omitempty" validate:"omitempty,mobile"`
	Age    int    `json:"age,omitempty" validate:"omitempty,min=0,max=130"`
	Gender string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
}

// Passenger is one manifest entry sent with a confirmation.
type Passenger struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

func (p PassengerDetails) Normalize() PassengerDetails {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	return p
}

// Validate returns a Validation failure describing every invalid field.
func (p PassengerDetails) Validate() error {
	return validationFailure(p)
}

func validationFailure(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewFailure(FailureValidation, err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return NewFailure(FailureValidation, strings.Join(msgs, "; "))
}

// Manifest builds the passenger list confirmed with the hold.
func (p PassengerDetails) Manifest() []Passenger {
	name := p.Name
	if name == "" {
		name = "Traveller"
	}
	return []Passenger{{Name: name, Age: p.Age, Gender: p.Gender}}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "email":
		return "please enter a valid email address"
	case "mobile":
		return "enter valid 10-digit number starting with 6-9"
	case "min":
		return fmt.Sprintf("%s must be at least %s", strings.ToLower(fe.Field()), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", strings.ToLower(fe.Field()), fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", strings.ToLower(fe.Field()), strings.ToLower(fe.Param()))
	case "datetime":
		return fmt.Sprintf("%s must be a date like %s", strings.ToLower(fe.Field()), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", strings.ToLower(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag())
	}
}
