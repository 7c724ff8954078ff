// Package storage сохраняет скриншоты переводов, приложенные к заказам.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxExtLen = 8

var ErrInvalidRef = errors.New("invalid screenshot reference")

var extRe = regexp.MustCompile(`^\.[a-z0-9]+$`)

// objectName имя файла: <unix ms>-<uuid><расширение исходного файла>. Имя от клиента в путь не попадает.
func objectName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > maxExtLen || !extRe.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}

func readSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffering upload: %w", err)
	}
	return bytes.NewReader(data), nil
}
