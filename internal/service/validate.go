package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/you/go-voice-flights/internal/apperr"
)

const (
	msgRequired   = "Origin, destination, and departure date are required"
	msgCodeLength = "Airport codes must be at least 2 characters"
	msgDate       = "Invalid date format"
)

type checker struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	checkerOnce sync.Once
	shared      *checker
)

func getChecker() *checker {
	checkerOnce.Do(func() {
		enLoc := en.New()
		trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		shared = &checker{v: v, trans: trans}
	})
	return shared
}

// rank orders failures so that presence is reported before length and
// length before date format, whatever field they belong to.
func rank(fe validator.FieldError) int {
	switch fe.Tag() {
	case "required":
		return 0
	case "min":
		if fe.Field() == "origin" || fe.Field() == "destination" {
			return 1
		}
	case "datetime":
		return 2
	}
	return 3
}

func (c *checker) message(fe validator.FieldError) string {
	switch rank(fe) {
	case 0:
		return msgRequired
	case 1:
		return msgCodeLength
	case 2:
		return msgDate
	default:
		return fe.Translate(c.trans)
	}
}

// check validates req and returns the highest-priority failure as an
// apperr validation error.
func (c *checker) check(req SearchRequest) error {
	err := c.v.Struct(req)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return apperr.Validation(err.Error())
	}
	first := fes[0]
	for _, fe := range fes[1:] {
		if rank(fe) < rank(first) {
			first = fe
		}
	}
	return apperr.Validation(c.message(first))
}
