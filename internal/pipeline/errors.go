package pipeline

import "errors"

var (
	ErrConfig        = errors.New("invalid pipeline configuration")
	ErrStageFailed   = errors.New("stage failed")
	ErrTestsFailed   = errors.New("tests failed")
	ErrReleaseDenied = errors.New("release refused after failed stage")
)
