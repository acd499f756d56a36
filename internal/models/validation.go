package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", NotBlank); err != nil {
		panic(err)
	}
	return v
}

// NotBlank проверяет, что строка не пустая после обрезки пробелов.
func NotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate проверяет структуру по тегам validate.
func Validate(s interface{}) error {
	return validate.Struct(s)
}
