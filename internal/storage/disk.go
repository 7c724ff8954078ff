package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// DiskStore кладет файлы в локальный каталог. Ссылка на файл - его имя внутри каталога.
type DiskStore struct {
	dir string
	now func() time.Time
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

//nolint:nonamedreturns
func (d *DiskStore) Save(ctx context.Context, originalName, _ string, r io.Reader) (ref string, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr //nolint:wrapcheck
	}
	name := objectName(originalName, d.now())
	path := filepath.Join(d.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return "", fmt.Errorf("creating screenshot file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing screenshot file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing screenshot file: %w", err)
	}
	return name, nil
}

// Delete удаляет файл по ссылке, выданной Save. Отсутствующий файл не ошибка.
func (d *DiskStore) Delete(ctx context.Context, ref string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr //nolint:wrapcheck
	}
	if ref == "" || filepath.Base(ref) != ref {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if err := os.Remove(filepath.Join(d.dir, ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing screenshot file: %w", err)
	}
	return nil
}
