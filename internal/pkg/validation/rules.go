package validation

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Field rules shared by request binding and service-level checks.
const (
	NameMinLength     = 2
	PasswordMinLength = 6
	RegionMinLength   = 2
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern     = regexp.MustCompile(`^\d{10}$`)
	postalCodePattern = regexp.MustCompile(`^\d{6}$`)
)

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool { return emailPattern.MatchString(s) }

// IsMobile reports whether s is a 10 digit phone number.
func IsMobile(s string) bool { return mobilePattern.MatchString(s) }

// IsPostalCode reports whether s is a 6 digit postal code.
func IsPostalCode(s string) bool { return postalCodePattern.MatchString(s) }

var registerOnce sync.Once

// Register installs the custom tags on gin's validator engine. Tags:
// postalcode, mobile, looseemail.
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	rules := map[string]func(string) bool{
		"postalcode": IsPostalCode,
		"mobile":     IsMobile,
		"looseemail": IsEmail,
	}
	for tag, fn := range rules {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			return err
		}
	}
	return nil
}

// FieldMessages converts validator errors to a field -> message map. Other
// errors are returned under the "body" key.
func FieldMessages(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[lowerFirst(fe.Field())] = message(fe)
	}
	return out
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param()
	case "email", "looseemail":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + e.Param()
	case "postalcode":
		return "must be a 6 digit postal code"
	case "mobile":
		return "must be a 10 digit mobile number"
	case "uuid", "uuid4":
		return "must be a valid id"
	default:
		return "failed " + e.Tag() + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
