// Package osutils wraps the small pieces of host integration that differ per
// operating system: firewall rules, display sleep and waking the machine.
package osutils

import "github.com/hashicorp/go-hclog"

var logger hclog.Logger = hclog.NewNullLogger()

// SetLogger sets the logger used by the package.
func SetLogger(l hclog.Logger) {
	if l != nil {
		logger = l.Named("osutils")
	}
}
