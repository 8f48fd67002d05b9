package testrun

import "errors"

var (
	ErrRuntimeUnreachable      = errors.New("container runtime unreachable")
	ErrContainerStart          = errors.New("container start failed")
	ErrContainerNetworkTimeout = errors.New("container network address not available")
	ErrContainerExited         = errors.New("container exited")
	ErrTestExecution           = errors.New("test execution failed")
)
