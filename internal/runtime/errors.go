package runtime

import "errors"

var (
	ErrRuntime        = errors.New("runtime error")
	ErrUnreachable    = errors.New("containerd not serving")
	ErrEmptyArchive   = errors.New("archive contains no image")
	ErrMultipleImages = errors.New("archive contains more than one image")
)
