package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNotLoggedIn = errors.New("not logged in")
)

var errorByCode = map[string]error{
	"bad_request":  common.ErrBadRequest,
	"malformed":    common.ErrMalformed,
	"expired":      common.ErrExpired,
	"unauthorized": common.ErrorUnauthorized,
	"forbidden":    common.ErrForbidden,
	"not_found":    common.ErrorNotFound,
	"conflict":     common.ErrAlreadyExists,
	"internal":     common.ErrorInternal,
}

// mapError turns an error body from the server back into the shared error
// taxonomy so callers can use errors.Is.
func mapError(status int, code, message string) error {
	if base, ok := errorByCode[code]; ok {
		if message == "" || message == base.Error() {
			return base
		}
		return fmt.Errorf("%w: %s", base, message)
	}
	if status >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
	return fmt.Errorf("unexpected status %d", status)
}
