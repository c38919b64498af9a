package gpu

import "github.com/cockroachdb/errors"

// Every stage error wraps exactly one of these. Test with errors.Is.
var (
	ErrUnsupportedExtensions       = errors.New("gpu: required instance extensions not supported")
	ErrUnsupportedLayers           = errors.New("gpu: requested validation layers not supported")
	ErrInstanceCreationFailed      = errors.New("gpu: instance creation failed")
	ErrDiagnosticsUnavailable      = errors.New("gpu: debug messenger unavailable")
	ErrNoAcceleratorsFound         = errors.New("gpu: no physical accelerators found")
	ErrNoSuitableAccelerator       = errors.New("gpu: no accelerator exposes a graphics queue family")
	ErrLogicalDeviceCreationFailed = errors.New("gpu: logical device creation failed")
)

// stageError wraps kind with a message and, when the host reported one,
// marks the result with the underlying cause so errors.Is matches both.
func stageError(kind, cause error, format string, args ...interface{}) error {
	err := errors.Wrapf(kind, format, args...)
	if cause != nil {
		err = errors.Mark(errors.WithSecondaryError(err, cause), cause)
	}
	return err
}
