package api

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestBaseURL адрес сервиса, как его видит клиент. Учитывает X-Forwarded-Proto от прокси.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}

// parseBooks принимает список книг либо JSON массивом, либо строкой с JSON массивом (так приходит из
// multipart форм). Нераспознанное значение считается пустым списком.
func parseBooks(raw json.RawMessage) []string {
	books := []string{}
	if len(raw) == 0 {
		return books
	}
	if err := json.Unmarshal(raw, &books); err == nil {
		return compactBooks(books)
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return []string{}
	}
	return parseBooksString(encoded)
}

func parseBooksString(encoded string) []string {
	var books []string
	if err := json.Unmarshal([]byte(encoded), &books); err != nil {
		return []string{}
	}
	return compactBooks(books)
}

func compactBooks(books []string) []string {
	res := make([]string, 0, len(books))
	for _, b := range books {
		if b = strings.TrimSpace(b); b != "" {
			res = append(res, b)
		}
	}
	return res
}
