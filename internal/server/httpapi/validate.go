package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. Every failure is
// wrapped in common.ErrBadRequest.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", common.ErrBadRequest)
	}
	return validateStruct(dst)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}

	first := verrs[0]
	field := first.Field()
	switch first.Tag() {
	case "required":
		return fmt.Errorf("%w: field '%s' is required", common.ErrBadRequest, field)
	case "email":
		return fmt.Errorf("%w: field '%s' must be a valid email address", common.ErrBadRequest, field)
	case "min":
		return fmt.Errorf("%w: field '%s' must be at least %s characters long", common.ErrBadRequest, field, first.Param())
	case "max":
		return fmt.Errorf("%w: field '%s' must be at most %s characters long", common.ErrBadRequest, field, first.Param())
	case "uuid":
		return fmt.Errorf("%w: field '%s' must be a valid UUID", common.ErrBadRequest, field)
	default:
		return fmt.Errorf("%w: field '%s' failed on '%s'", common.ErrBadRequest, field, first.Tag())
	}
}
