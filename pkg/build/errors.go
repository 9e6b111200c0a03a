package build

import "errors"

var (
	ErrDuplicateResource   = errors.New("build: duplicate resource")
	ErrDuplicateConnector  = errors.New("build: duplicate connector")
	ErrResourceNotFound    = errors.New("build: resource not found")
	ErrConnectorNotFound   = errors.New("build: connector not found")
	ErrAlreadyRequested    = errors.New("build: resource already requested")
	ErrInvalidPinSpec      = errors.New("build: invalid pin spec")
	ErrInvalidResource     = errors.New("build: invalid resource")
	ErrOverrideConflict    = errors.New("build: conflicting toolchain override")
	ErrProgramNotSupported = errors.New("build: platform does not support programming")
)
