package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apierrors "github.com/olgasafonova/tmodloader-docs-mcp-server/internal/errors"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", apierrors.NewValidationError("format", s, "must be text or json")
	}
}

// Texter is implemented by results that have a human-readable rendering.
type Texter interface {
	Text() string
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result Texter, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeText(w io.Writer, result Texter) error {
	text := result.Text()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
