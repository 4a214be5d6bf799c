// Package clipboard copies text to the desktop clipboard through whichever
// copy utility the platform provides.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no copy utility is installed.
var ErrUnavailable = errors.New("clipboard unavailable")

// tool is a command that reads the text to copy from stdin.
type tool struct {
	name string
	args []string
}

// tools lists the copy utilities per GOOS in order of preference.
var tools = map[string][]tool{
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"darwin":  {{name: "pbcopy"}},
	"windows": {{name: "clip"}},
}

func find(goos string, lookPath func(string) (string, error)) (tool, error) {
	for _, t := range tools[goos] {
		if _, err := lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return tool{}, ErrUnavailable
}

// Copy places text on the clipboard.
func Copy(ctx context.Context, text string) error {
	t, err := find(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", t.name, err)
	}
	return nil
}
