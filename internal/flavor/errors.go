package flavor

import "errors"

var (
	ErrInvalidFlavor = errors.New("invalid flavor")
)
