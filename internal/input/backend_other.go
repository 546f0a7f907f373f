//go:build !darwin && !windows

package input

import (
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
)

// platformDefault uses xdotool when it is installed and falls back to a
// dry run otherwise.
func platformDefault(logger hclog.Logger) (Actuator, error) {
	if _, err := exec.LookPath("xdotool"); err == nil {
		return NewXdotool(logger), nil
	}
	logger.Warn("xdotool not found in PATH; commands will only be logged")
	return NewLogActuator(logger), nil
}

func newCoreGraphics(hclog.Logger) (Actuator, error) {
	return nil, fmt.Errorf("%w: coregraphics requires macOS", ErrUnsupported)
}

func newSendInput(hclog.Logger) (Actuator, error) {
	return nil, fmt.Errorf("%w: sendinput requires windows", ErrUnsupported)
}
