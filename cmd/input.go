package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// readInput resolves the text a command operates on: joined positional
// arguments when present, otherwise the named file, otherwise stdin.
func readInput(args []string, path string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
