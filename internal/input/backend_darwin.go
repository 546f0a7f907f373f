//go:build darwin

package input

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

func platformDefault(logger hclog.Logger) (Actuator, error) {
	return newCoreGraphics(logger)
}

func newSendInput(hclog.Logger) (Actuator, error) {
	return nil, fmt.Errorf("%w: sendinput requires windows", ErrUnsupported)
}
