package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// trans is the singleton English translator for validation errors.
	trans ut.Translator
	once  sync.Once

	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern     = regexp.MustCompile(`^\d{10}$`)
	admissionPattern = regexp.MustCompile(`^\d{6}$`)
)

// customRule is a regexp-backed tag with its English message.
type customRule struct {
	tag     string
	pattern *regexp.Regexp
	message string
}

var customRules = []customRule{
	{tag: "basic_email", pattern: emailPattern, message: "Please enter a valid email address"},
	{tag: "phone10", pattern: phonePattern, message: "Phone number must be exactly 10 digits"},
	{tag: "admission6", pattern: admissionPattern, message: "Admission number must be exactly 6 digits"},
}

// Setup registers the validator with English translations and the custom
// signup rules on Gin's binding engine. Safe to call more than once.
func Setup() {
	once.Do(setup)
}

func setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for _, rule := range customRules {
		rule := rule
		_ = v.RegisterValidation(rule.tag, func(fl govalidator.FieldLevel) bool {
			return rule.pattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterTranslation(rule.tag, trans,
			func(u ut.Translator) error { return u.Add(rule.tag, rule.message, true) },
			func(u ut.Translator, fe govalidator.FieldError) string {
				msg, _ := u.T(rule.tag)
				return msg
			},
		)
	}

	_ = v.RegisterTranslation("eqfield", trans,
		func(u ut.Translator) error { return u.Add("eqfield", "Passwords do not match", true) },
		func(u ut.Translator, fe govalidator.FieldError) string {
			msg, _ := u.T("eqfield")
			return msg
		},
	)
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Struct validates an already-populated struct against its binding tags.
func Struct(v interface{}) map[string]string {
	Setup()
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// IsEmail reports whether s has the basic local@domain.tld shape.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}
