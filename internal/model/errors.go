package model

import "errors"

// Input validation
var (
	ErrSessionNameInvalid = errors.New("session name invalid")
	ErrNoteTooLong        = errors.New("note too long")
	ErrTagInvalid         = errors.New("tag invalid")
	ErrTooManyTags        = errors.New("too many tags")
	ErrDuplicateTag       = errors.New("duplicate tag")
)

// Device/permission
var (
	ErrPermissionDenied        = errors.New("permission denied")
	ErrNoInputDevice           = errors.New("no input device")
	ErrConstraintsUnsatisfiable = errors.New("constraints unsatisfiable")
	ErrDeviceLost              = errors.New("device lost")
)

// State
var (
	ErrAlreadyRecording  = errors.New("already recording")
	ErrNotRecording      = errors.New("not recording")
	ErrIllegalTransition = errors.New("illegal transition")
)

// I/O
var (
	ErrBlobWriteFailed    = errors.New("blob write failed")
	ErrBlobNotFound       = errors.New("blob not found")
	ErrSessionStoreFailed = errors.New("session store failed")
	ErrRecoveryStoreFailed = errors.New("recovery store failed")
)

// Encoder
var (
	ErrEncoderFailed = errors.New("encoder failed")
	ErrStopTimeout   = errors.New("stop timeout")
)

// Catalog
var (
	ErrSessionNotFound             = errors.New("session not found")
	ErrFormatConversionUnsupported = errors.New("format conversion unsupported")
)
