package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/gin-gonic/gin"
)

// abortWithError прерывает запрос, оставляя рендер ответа middlewares.Errors. В отличие от
// c.AbortWithError заголовки не отправляются раньше времени.
func abortWithError(c *gin.Context, status int, err error, errType gin.ErrorType) {
	c.Abort()
	c.Status(status)
	_ = c.Error(err).SetType(errType)
}

// serviceErrorStatus http статус для ошибок сервисного слоя. Второе значение - можно ли отдавать текст
// ошибки клиенту.
func serviceErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidPlan),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrDuplicateTransaction),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrBadSignature),
		errors.Is(err, domain.ErrEmptyCode),
		errors.Is(err, domain.ErrAlreadyApplied),
		errors.Is(err, domain.ErrSelfReferral),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrReferralLocked),
		errors.Is(err, domain.ErrFreePaperLimit):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrUnconfigured):
		return http.StatusInternalServerError, true
	default:
		return http.StatusInternalServerError, false
	}
}

// publicMessages короткие сообщения для клиента вместо текста с контекстом обертки.
var publicMessages = map[error]string{
	domain.ErrRecordNotFound:       "Order not found.",
	domain.ErrForbidden:            "Forbidden.",
	domain.ErrDuplicateTransaction: "Transaction ID already used.",
	domain.ErrExpired:              "Order expired. Please create a new order.",
	domain.ErrInvalidPlan:          "Invalid plan selected.",
}

func abortWithServiceError(c *gin.Context, err error) {
	status, public := serviceErrorStatus(err)
	if !public {
		abortWithError(c, status, err, gin.ErrorTypePrivate)
		return
	}
	for target, msg := range publicMessages {
		if errors.Is(err, target) {
			abortWithError(c, status, &publicError{msg: msg, err: err}, gin.ErrorTypePublic)
			return
		}
	}
	abortWithError(c, status, err, gin.ErrorTypePublic)
}

// publicError подменяет текст ошибки для клиента, сохраняя цепочку для логов и errors.Is.
type publicError struct {
	msg string
	err error
}

func (e *publicError) Error() string {
	return e.msg
}

func (e *publicError) Unwrap() error {
	return e.err
}
