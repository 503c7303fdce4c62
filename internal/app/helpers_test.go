package app

import (
	"errors"

	"internportal/internal/common"
)

func asError(err error, target **common.Error) bool {
	return errors.As(err, target)
}
