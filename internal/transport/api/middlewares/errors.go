package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// statusErrorText текст для клиента, когда текст самой ошибки показывать нельзя.
func statusErrorText(status int) string {
	switch {
	case status == http.StatusForbidden:
		return "Forbidden."
	case status < http.StatusBadRequest || status >= http.StatusInternalServerError:
		return "internal server error"
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "bad request"
}

// Errors рендерит первую ошибку запроса в виде {"success": false, "error": "..."}.
// Текст приватных ошибок клиенту не отдается. Если обработчик уже записал тело ответа, ничего не делает.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Size() > 0 {
			return
		}

		// обрабатываем только первую ошибку
		firstErr := c.Errors[0]
		var msg string
		if firstErr.IsType(gin.ErrorTypePublic) {
			msg = firstErr.Error()
		} else {
			msg = statusErrorText(c.Writer.Status())
		}

		c.JSON(c.Writer.Status(), gin.H{"success": false, "error": msg})
		c.Abort()
	}
}
