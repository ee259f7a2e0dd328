package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/selfieauth/internal/pkg/strcase"
)

const (
	// minPhoneLength rejects numbers that are E.164-shaped but too short to dial.
	minPhoneLength = 11
	otpLength      = 6
)

var (
	reE164   = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	reOTP    = regexp.MustCompile(`^\d{6}$`)
	reDigits = regexp.MustCompile(`^\d*$`)
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned when validation fails.
//
// Keys are field names in snake_case to match typical JSON conventions.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerPhoneRule(validate, enTrans); err != nil {
		return nil, err
	}
	if err := registerOTPRule(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	errV10 := make(V10ValidationError, len(validateErrs))
	for _, fe := range validateErrs {
		errV10[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}

	return errV10
}

// ValidPhoneNumber reports whether s is an E.164 number long enough to dial.
func ValidPhoneNumber(s string) bool {
	return reE164.MatchString(s) && len(s) >= minPhoneLength
}

// ValidOTP reports whether s is exactly six ASCII digits.
func ValidOTP(s string) bool {
	return reOTP.MatchString(s)
}

func registerPhoneRule(validate *validator.Validate, trans ut.Translator) error {
	if err := validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && ValidPhoneNumber(s)
	}); err != nil {
		return err
	}

	return validate.RegisterTranslation("phone", trans,
		func(ut ut.Translator) error {
			if err := ut.Add("phone_format", "Please enter a valid E.164 phone number (e.g., +91XXXXXXXXXX).", false); err != nil {
				return err
			}
			return ut.Add("phone_short", "Please enter a complete phone number.", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			key := "phone_format"
			if s, ok := fe.Value().(string); ok && reE164.MatchString(s) {
				key = "phone_short"
			}
			return translate(ut, key, fe)
		},
	)
}

func registerOTPRule(validate *validator.Validate, trans ut.Translator) error {
	if err := validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && ValidOTP(s)
	}); err != nil {
		return err
	}

	return validate.RegisterTranslation("otp", trans,
		func(ut ut.Translator) error {
			if err := ut.Add("otp_length", "OTP must be 6 digits.", false); err != nil {
				return err
			}
			return ut.Add("otp_digits", "OTP must contain only digits.", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			key := "otp_digits"
			if s, ok := fe.Value().(string); ok && len(s) != otpLength && reDigits.MatchString(s) {
				key = "otp_length"
			}
			return translate(ut, key, fe)
		},
	)
}

func translate(ut ut.Translator, key string, fe validator.FieldError) string {
	t, err := ut.T(key)
	if err != nil {
		slog.Warn("warning: error translating", "tag", fe.Tag(), "key", key, "error", err)
		return fe.Error()
	}
	return t
}
