package persistence

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// notFound tags a domain sentinel with shared.ErrNotFound so both match under errors.Is
func notFound(sentinel error) error {
	if sentinel == error(shared.ErrNotFound) {
		return shared.ErrNotFound
	}
	return fmt.Errorf("%w: %w", sentinel, shared.ErrNotFound)
}

// translate maps gorm.ErrRecordNotFound onto the domain sentinel and passes other errors through
func translate(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(sentinel)
	}
	return err
}
