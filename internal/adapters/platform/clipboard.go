// Package platform bridges the OS facilities the control surface
// delegates to.
package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoClipboardTool = errors.New("no clipboard utility found")

// clipboardTools in preference order; the first one present is used.
var clipboardTools = [][]string{
	{"wl-paste", "--no-newline"},
	{"xclip", "-selection", "clipboard", "-o"},
	{"xsel", "-b", "-o"},
	{"pbpaste"},
}

// ExecClipboard reads the clipboard through the platform paste utility.
// A missing tool or denied selection is an expected failure the caller
// reports, not a crash.
type ExecClipboard struct{}

func (ExecClipboard) Read(ctx context.Context) (string, error) {
	for _, tool := range clipboardTools {
		if _, err := exec.LookPath(tool[0]); err != nil {
			continue
		}
		out, err := exec.CommandContext(ctx, tool[0], tool[1:]...).Output()
		if err != nil {
			return "", fmt.Errorf("%s: %w", tool[0], err)
		}
		return strings.TrimRight(string(out), "\n"), nil
	}
	return "", ErrNoClipboardTool
}
