//go:build windows

package input

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

func platformDefault(logger hclog.Logger) (Actuator, error) {
	return newSendInput(logger)
}

func newCoreGraphics(hclog.Logger) (Actuator, error) {
	return nil, fmt.Errorf("%w: coregraphics requires macOS", ErrUnsupported)
}
