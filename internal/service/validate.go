package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/locvowork/staffportal/internal/domain"
)

var validate = validator.New()

// Validate checks the `validate` tags of v and reports failures as a
// ValidationError whose Fields map names each failing field and rule.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.Error{Kind: domain.KindValidation, Message: "invalid input", Err: err}
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		fields[name] = rule
		names = append(names, name)
	}
	return &domain.Error{
		Kind:    domain.KindValidation,
		Message: "invalid " + strings.Join(names, ", "),
		Fields:  fields,
	}
}
