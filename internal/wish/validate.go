package wish

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hpungsan/santa/internal/errors"
)

// HandlePrefix is the required first character of a contact handle.
const HandlePrefix = "@"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
			return strings.HasPrefix(fl.Field().String(), HandlePrefix)
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return Category(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// ValidateDraft normalizes d and checks it. When requireCategory is set, a
// missing category is rejected as well. Returns the normalized draft.
func ValidateDraft(d Draft, requireCategory bool) (Draft, error) {
	d = d.Normalize()

	fields := make(map[string]string)
	if err := getValidator().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return d, errors.NewInternal(err)
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
	}
	if requireCategory && d.Category == "" {
		fields["category"] = "category is required"
	}

	if len(fields) > 0 {
		return d, errors.NewValidation(fields)
	}
	return d, nil
}

// fieldMessage formats a single field validation error.
func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "handle":
		return fmt.Sprintf("%s must start with %s", field, HandlePrefix)
	case "category":
		names := make([]string, len(Categories))
		for i, c := range Categories {
			names[i] = string(c)
		}
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(names, ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
