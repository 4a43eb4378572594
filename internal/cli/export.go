package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/helix/pkg/domain"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ExportTools writes the tool declarations the runtime receives, as YAML or JSON.
func ExportTools(w io.Writer, tools []domain.Tool, format string) error {
	switch format {
	case "", FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tools); err != nil {
			return fmt.Errorf("encode tools: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatYAML, FormatJSON)
	}
}
