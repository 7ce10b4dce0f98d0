/*
Package req provides helper functions for HTTP request parsing and validation.

BindJSON decodes a strict JSON body and then runs the go-playground validator
over the destination struct, translating every failure into an errs.CustomError.
*/
package req

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"liveshop/internal/pkg/errs"
)

// MaxBodySize is the largest request body the JSON endpoints accept.
const MaxBodySize int64 = 16 << 10 // 16 KB

var (
	validate = newValidator()

	// channelNameRegex is the character set and length Agora accepts for channel names.
	channelNameRegex = regexp.MustCompile(`^[a-zA-Z0-9 !#$%&()+\-:;<=.>?@\[\]^_{}|~,]{1,64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("channelname", func(fl validator.FieldLevel) bool {
		return channelNameRegex.MatchString(fl.Field().String())
	})

	return v
}

// IsValidChannelName reports whether name is an acceptable Agora channel name.
func IsValidChannelName(name string) bool {
	return channelNameRegex.MatchString(name)
}

// Validate runs the struct validator and converts the first failure into an error response.
func Validate(dst any) *errs.CustomError {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.NewError(errs.ErrInvalidParams, "unreadable request")
	}

	fe := verrs[0]
	if fe.Tag() == "channelname" {
		return errs.NewError(errs.ErrInvalidChannelName)
	}
	return errs.NewError(errs.ErrInvalidParams, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
}

// BindJSON decodes the JSON request body into dst and validates it.
// Unknown fields and trailing content are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return Validate(dst)
}
