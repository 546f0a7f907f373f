package input

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

var (
	// ErrActuator wraps every failure to inject a command
	ErrActuator = errors.New("actuator failure")

	// ErrUnsupported is returned for commands a back-end cannot perform
	ErrUnsupported = errors.New("unsupported command")

	// ErrUnknownBackend is returned by New for an unrecognized back-end name
	ErrUnknownBackend = errors.New("unknown actuator backend")
)

// Actuator performs normalized commands on the host. Implementations must be
// safe for concurrent use; every connection calls Execute from its own
// goroutine.
type Actuator interface {
	Execute(cmd Command) error
}

// Backend names accepted by New
const (
	BackendAuto         = "auto"
	BackendLog          = "log"
	BackendXdotool      = "xdotool"
	BackendCoreGraphics = "coregraphics"
	BackendSendInput    = "sendinput"
)

// New creates the actuator for backend. "auto" selects the platform default.
func New(backend string, logger hclog.Logger) (Actuator, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("actuator")

	switch backend {
	case "", BackendAuto:
		return platformDefault(logger)
	case BackendLog:
		return NewLogActuator(logger), nil
	case BackendXdotool:
		return NewXdotool(logger), nil
	case BackendCoreGraphics:
		return newCoreGraphics(logger)
	case BackendSendInput:
		return newSendInput(logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// LogActuator only logs commands. It backs dry runs and platforms without
// an injection back-end.
type LogActuator struct {
	logger hclog.Logger
}

// NewLogActuator creates a dry-run actuator.
func NewLogActuator(logger hclog.Logger) *LogActuator {
	return &LogActuator{logger: logger}
}

// Execute logs cmd.
func (a *LogActuator) Execute(cmd Command) error {
	a.logger.Info("dry run", "command", cmd.String())
	return nil
}

func actuatorError(cmd Command, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrActuator, cmd.Kind, err)
}
