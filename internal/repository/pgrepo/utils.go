package pgrepo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
)

// safeConvertUintToInt32 безопасно конвертирует uint в int32. В случае выхода значения за рамки диапазона
// выбрасывает ошибку.
func safeConvertUintToInt32(val uint) (int32, error) {
	if val > uint(math.MaxInt32) {
		return 0, fmt.Errorf("value is out of range: %d", val)
	}
	return int32(val), nil
}

// scanDoc читает из строки единственную колонку doc и декодирует ее в T.
func scanDoc[T any](row pgx.Row) (*T, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, err //nolint:wrapcheck
	}
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &doc, nil
}

func collectDocs[T any](rows pgx.Rows) ([]T, error) {
	raws, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	docs := make([]T, len(raws))
	for i, raw := range raws {
		if err = json.Unmarshal(raw, &docs[i]); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
	}
	return docs, nil
}
