package appconfig

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ShowConfig prints the current configuration as YAML with the API key redacted.
func ShowConfig(out io.Writer, file string, cfg Config) error {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults and environment).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
