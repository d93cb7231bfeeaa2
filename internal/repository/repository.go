package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when a write hits a unique index.
var ErrDuplicate = errors.New("duplicate record")

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
