// Package client implements padctl, the terminal controller for a remotepad
// host. It reads pairing codes, reports host status and forwards keystrokes.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"remotepad/internal/logging"
	"remotepad/internal/network"
	"remotepad/internal/pairing"
	"remotepad/internal/protocol"
)

// Build information, set via ldflags.
var Version = "dev"

// ErrNoKey is returned when neither a key nor a passphrase is given
var ErrNoKey = errors.New("a pairing key or passphrase is required")

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "padctl",
		Usage:   "Control a remotepad host from the terminal",
		Version: Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			decodeCommand(),
			statusCommand(),
			sendCommand(),
			typeCommand(),
			connectCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Hex encoded pairing key shared with the host",
			EnvVars: []string{"REMOTEPAD_PAIRING_KEY"},
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Aliases: []string{"p"},
			Usage:   "Passphrase the pairing key is derived from",
			EnvVars: []string{"REMOTEPAD_PAIRING_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:    "cipher",
			Usage:   "Pairing cipher: aes-256-cbc or xchacha20-poly1305",
			EnvVars: []string{"REMOTEPAD_PAIRING_CIPHER"},
			Value:   string(pairing.DefaultMode),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level for connection diagnostics",
			EnvVars: []string{"REMOTEPAD_LOG_LEVEL"},
			Value:   "warn",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Time allowed to reach the host",
			Value: 10 * time.Second,
		},
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Print the connection parameters carried by a pairing code",
		ArgsUsage: "<code>",
		Action: func(c *cli.Context) error {
			p, err := payload(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Address: %s\nPort:    %d\nSecret:  %s\n", p.Address, p.Port, p.Secret)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the status of the host a pairing code points at",
		ArgsUsage: "<code>",
		Action: func(c *cli.Context) error {
			p, err := payload(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			st, err := network.FetchStatus(ctx, p.Address, p.Port)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "Host:        %s:%d\n", p.Address, p.Port)
			fmt.Fprintf(c.App.Writer, "Platform:    %s/%s\n", st.Platform, st.Arch)
			fmt.Fprintf(c.App.Writer, "Session:     %d\n", st.Epoch)
			fmt.Fprintf(c.App.Writer, "Controllers: %d\n", st.Connections)
			return nil
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send one event, e.g. send <code> move '{\"dx\":10,\"dy\":0}'",
		ArgsUsage: "<code> <event> [data]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.Exit("usage: padctl send <code> <event> [data]", 2)
			}
			data, err := eventData(c.Args().Get(2))
			if err != nil {
				return err
			}
			return withClient(c, func(cl *network.Client) error {
				return cl.Send(protocol.EventType(c.Args().Get(1)), data)
			})
		},
	}
}

func typeCommand() *cli.Command {
	return &cli.Command{
		Name:      "type",
		Usage:     "Type text on the host",
		ArgsUsage: "<code> <text>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.Exit("usage: padctl type <code> <text>", 2)
			}
			return withClient(c, func(cl *network.Client) error {
				return cl.Send(protocol.EventTypeText, map[string]string{"text": c.Args().Get(1)})
			})
		},
	}
}

func connectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Forward keystrokes to the host until Ctrl-] is pressed",
		ArgsUsage: "<code>",
		Action: func(c *cli.Context) error {
			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return cli.Exit("connect needs an interactive terminal", 2)
			}
			return withClient(c, func(cl *network.Client) error {
				fmt.Fprintf(c.App.Writer, "Connected to session %d. Press Ctrl-] to quit.\n", cl.Epoch())
				state, err := term.MakeRaw(fd)
				if err != nil {
					return err
				}
				defer term.Restore(fd, state)
				return forwardKeys(os.Stdin, cl)
			})
		},
	}
}

// forwardKeys sends key taps read from r until quit, EOF or disconnect.
func forwardKeys(r io.Reader, cl sender) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			keys, quit := ParseKeys(buf[:n])
			for _, k := range keys {
				if err := cl.Send(protocol.EventKeyTap, keyTap(k)); err != nil {
					return err
				}
			}
			if quit {
				return cl.Send(protocol.EventBlur, nil)
			}
		}
		if errors.Is(err, io.EOF) {
			return cl.Send(protocol.EventBlur, nil)
		}
		if err != nil {
			return err
		}
	}
}

type sender interface {
	Send(t protocol.EventType, data any) error
}

func keyTap(k Key) map[string]any {
	data := map[string]any{"key": k.Name}
	if len(k.Modifiers) > 0 {
		data["modifiers"] = k.Modifiers
	}
	return data
}

// eventData parses the optional JSON data argument of send
func eventData(arg string) (any, error) {
	if arg == "" {
		return nil, nil
	}
	if !gjson.Valid(arg) {
		return nil, fmt.Errorf("event data is not valid JSON: %s", arg)
	}
	return gjson.Parse(arg).Value(), nil
}

func withClient(c *cli.Context, fn func(*network.Client) error) error {
	p, err := payload(c)
	if err != nil {
		return err
	}
	logger := logging.New("padctl", logging.Options{Level: c.String("log-level"), Output: c.App.ErrWriter})

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()
	cl, err := network.Dial(ctx, p, logger)
	if err != nil {
		return err
	}
	defer cl.Close()
	return fn(cl)
}

// payload decodes the pairing code given as the first argument
func payload(c *cli.Context) (pairing.Payload, error) {
	code := c.Args().First()
	if code == "" {
		return pairing.Payload{}, cli.Exit("a pairing code argument is required", 2)
	}
	codec, err := codecFromFlags(c.String("key"), c.String("passphrase"), c.String("cipher"))
	if err != nil {
		return pairing.Payload{}, err
	}
	return codec.Read(code)
}

func codecFromFlags(key, passphrase, cipher string) (*pairing.Codec, error) {
	if key == "" && passphrase == "" {
		return nil, ErrNoKey
	}
	k, _, err := pairing.ResolveKey(key, passphrase)
	if err != nil {
		return nil, err
	}
	mode, err := pairing.ParseMode(cipher)
	if err != nil {
		return nil, err
	}
	return pairing.NewCodec(k, mode)
}
