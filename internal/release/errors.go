package release

import "errors"

var (
	ErrReleaseFile = errors.New("release file update failed")
	ErrPublish     = errors.New("publish failed")
)
