package resolver

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/extforge/internal/coords"
)

var (
	// ErrConfig marks user-facing extension configuration mistakes.
	ErrConfig = errors.New("extension configuration error")
	// ErrNoDeploymentSource is a precondition violation: an extension
	// dependency was requested for a project with neither an extension
	// block nor a descriptor.
	ErrNoDeploymentSource = errors.New("neither extension configuration nor descriptor supplied a deployment target")
)

// ConfigError names the extension and the offending coordinate or path.
type ConfigError struct {
	Extension coords.ArtifactCoords
	Msg       string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: extension %s: %s", ErrConfig, e.Extension, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfig}
	}
	return []error{ErrConfig, e.Err}
}

func configErrorf(ext coords.ArtifactCoords, cause error, format string, args ...any) error {
	return &ConfigError{Extension: ext, Msg: fmt.Sprintf(format, args...), Err: cause}
}
