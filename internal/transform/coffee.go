package transform

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/foldingtext/ftbundle/internal/config"
)

// CoffeeOptions are the rule options understood by the coffee loader.
type CoffeeOptions struct {
	Literate bool     `json:"literate"`
	Bare     *bool    `json:"bare"`    // defaults to true: the bundler wraps modules itself
	Command  string   `json:"command"` // compiler executable, "coffee" by default
	Args     []string `json:"args"`    // extra compiler arguments
}

// Runner runs an external command with stdin as input and returns its
// standard output.
type Runner func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)

// CommandError carries the diagnostics of a failed compiler run.
type CommandError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Path, e.Err, msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

type coffeeLoader struct {
	command string
	args    []string
	run     Runner
}

func newCoffeeLoader(opts map[string]any, run Runner) (*coffeeLoader, error) {
	var o CoffeeOptions
	if err := decode(opts, &o); err != nil {
		return nil, fmt.Errorf("coffee loader options: %w", err)
	}

	args := []string{"--compile", "--stdio"}
	if o.Bare == nil || *o.Bare {
		args = append(args, "--bare")
	}
	if o.Literate {
		args = append(args, "--literate")
	}
	args = append(args, o.Args...)

	return &coffeeLoader{command: cmp.Or(o.Command, "coffee"), args: args, run: run}, nil
}

func (l *coffeeLoader) Load(ctx context.Context, path string, src []byte) (Result, error) {
	out, err := l.run(ctx, l.command, l.args, src)
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) {
			ce.Path = path
			return Result{}, ce
		}
		return Result{}, &CommandError{Path: path, Err: err}
	}
	return Result{Contents: string(out), Loader: config.LoaderJS}, nil
}

func execRunner(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// we use this one so we don't need duplicate tags on every struct
func decode(input any, output any) error {
	dc := &mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           output,
	}

	decoder, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
