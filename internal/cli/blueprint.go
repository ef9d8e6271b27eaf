package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/storewizard/internal/presentation/graph"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"gopkg.in/yaml.v3"
)

// Blueprint output formats.
const (
	FormatYAML    = "yaml"
	FormatJSON    = "json"
	FormatMermaid = "mermaid"
)

// ValidateBlueprintFiles loads each file and reports its step and plan sizes.
func ValidateBlueprintFiles(paths []string, w io.Writer) error {
	failed := 0
	for _, path := range paths {
		bp, err := blueprint.LoadFile(path)
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "✓ %s: %s (%d steps, %d submission steps)\n", path, bp.Kind, len(bp.Steps), len(bp.Plan))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d blueprints are invalid", failed, len(paths))
	}
	return nil
}

// WriteBlueprint renders bp in the requested format.
func WriteBlueprint(bp blueprint.Blueprint, format string, w io.Writer) error {
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(bp); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(bp)
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(bp, nil))
		return err
	}
	return fmt.Errorf("unknown format %q (use yaml, json or mermaid)", format)
}
