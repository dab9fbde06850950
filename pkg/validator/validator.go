// Package validator registers the clinic's custom binding tags on the
// go-playground validator used by gin and turns validation failures into
// field level messages.
package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

var identificationPattern = regexp.MustCompile(`^[0-9]{4,20}$`)

// CustomValidators maps tag names to their validation funcs.
func CustomValidators() map[string]validator.Func {
	return map[string]validator.Func{
		"identification": func(fl validator.FieldLevel) bool {
			return identificationPattern.MatchString(fl.Field().String())
		},
	}
}

var messages = map[string]string{
	"required":       "is required",
	"email":          "must be a valid email",
	"min":            "is too short",
	"max":            "is too long",
	"oneof":          "must be one of: %s",
	"identification": "must contain only digits (4 to 20)",
}

// Register installs the custom tags and reports fields by their json name.
func Register(v *validator.Validate) error {
	for tag, fn := range CustomValidators() {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

var registerOnce sync.Once

// RegisterGin registers the custom tags on gin's binding engine once per process.
func RegisterGin() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		err = Register(v)
	})
	return err
}

// Messages renders each failed field as "<field> <reason>".
func Messages(err error) []string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on the %s rule", e.Tag())
		} else if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, e.Param())
		}
		out = append(out, fmt.Sprintf("%s %s", fieldPath(e), msg))
	}
	return out
}

// fieldPath drops the top level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// FromBinding converts a ShouldBind error into a validation AppError.
func FromBinding(err error) *errors.AppError {
	return errors.NewValidation(Messages(err)...)
}
