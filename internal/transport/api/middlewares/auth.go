package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service/tokens"
	"github.com/gin-gonic/gin"
)

var ErrTokenNotExist = errors.New("token not exist")

const CurrentUserEmailKey = "currentUserEmail"

// checkAuthorization извлекает токен из заголовка Authorization и проверяет его. Если токен не передан, вернется ошибка
// ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (string, error) {
	tokenHeader := c.GetHeader("Authorization")
	tokenStr, ok := strings.CutPrefix(tokenHeader, "Bearer ")
	if !ok || tokenStr == "" {
		return "", ErrTokenNotExist
	}

	claims, err := tokens.ValidateUserJWT(tokenStr, jwtTokenSecret)
	if err != nil {
		return "", fmt.Errorf("check authorization: %w", err)
	}
	return domain.NormalizeEmail(claims.Email), nil
}

// AuthRequired проверяет, что запрос авторизован. Записывает в контекст (поле CurrentUserEmailKey)
// нормализованный email пользователя.
func AuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			if !errors.Is(err, ErrTokenNotExist) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Please login first"})
			return
		}
		c.Set(CurrentUserEmailKey, email)
		c.Next()
	}
}

// OptionalAuth записывает email в контекст, если передан действительный токен. Запросы без токена
// или с недействительным токеном пропускаются как анонимные.
func OptionalAuth(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, err := checkAuthorization(c, jwtTokenSecret)
		if err == nil {
			c.Set(CurrentUserEmailKey, email)
		}
		c.Next()
	}
}

// CurrentUserEmail email текущего пользователя или пустая строка для анонимного запроса.
func CurrentUserEmail(c *gin.Context) string {
	return c.GetString(CurrentUserEmailKey)
}

// ReviewerChecker проверяет право пользователя на модерацию платежей.
type ReviewerChecker interface {
	CanReviewPayments(identity string) bool
}

// ReviewerRequired пропускает только модераторов. Ставится после AuthRequired, до разбора тела запроса.
// Без checker запрещено всем.
func ReviewerRequired(checker ReviewerChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil || !checker.CanReviewPayments(CurrentUserEmail(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Forbidden."})
			return
		}
		c.Next()
	}
}
