package api

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// customValidators теги валидации, которые регистрируются в движке gin binding.
var customValidators = map[string]validator.Func{
	"max_bytes":     validateMaxBytes,
	"review_action": validateReviewAction,
}

// validateMaxBytes ограничивает длину строки в байтах. Стандартный max считает руны.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return len(field.String()) <= limit
}

func validateReviewAction(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch domain.ReviewActionType(fl.Field().String()) {
	case domain.ReviewActionApprove, domain.ReviewActionReject:
		return true
	default:
		return false
	}
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("validator registration: unexpected binding engine")
	}
	for tag, fn := range customValidators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validator registration %s: %w", tag, err)
		}
	}
	return nil
}
