package cudatel

import (
	"errors"

	"github.com/dmitrymomot/cudatel/core/tunnel"
)

// ErrNotReady is returned by calls made before Boot has finished.
// It is always joined with tunnel.ErrConfiguration.
var ErrNotReady = errors.New("cudatel client is not ready")

func notReady(errs ...error) error {
	return errors.Join(append([]error{ErrNotReady, tunnel.ErrConfiguration}, errs...)...)
}
