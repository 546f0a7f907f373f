package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// helperTimeout bounds every helper process so a hung tool cannot stall a
// connection.
const helperTimeout = 2 * time.Second

// runner starts a helper process and waits for it.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", name, err, bytes.TrimSpace(out))
	}
	return nil
}

func runHelper(run runner, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), helperTimeout)
	defer cancel()
	return run(ctx, name, args...)
}
