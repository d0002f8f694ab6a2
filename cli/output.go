package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, formatJSON, formatYAML)
	}
}

func write(w io.Writer, format string, value any) error {
	switch format {
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return fmt.Errorf("failed to encode yaml output: %w", err)
		}
		return encoder.Close()
	default:
		encoder := json.NewEncoder(w)
		if isTerminal(w) {
			encoder.SetIndent("", "  ")
		}
		if err := encoder.Encode(value); err != nil {
			return fmt.Errorf("failed to encode json output: %w", err)
		}
		return nil
	}
}

// isTerminal reports whether w is an interactive terminal. JSON is indented
// only there so piped output stays one value per line.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
