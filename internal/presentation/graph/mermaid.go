// Package graph renders a blueprint as a Mermaid flowchart: the wizard steps
// in order, followed by the submission plan and its dependencies.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
)

// Overlay contains session state to highlight on the chart.
type Overlay struct {
	CurrentStep  int
	InvalidSteps []int
}

// GenerateMermaid produces Mermaid flowchart syntax for bp.
// Shapes:
// - Required step: [Rectangle]
// - Optional step: ([Stadium])
// - Primary record: ((Circle))
// - Fatal dependent: [[Subroutine]]
// - Best-effort dependent: [/Parallelogram/]
func GenerateMermaid(bp blueprint.Blueprint, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	steps := orderedSteps(bp)
	sb.WriteString("    subgraph wizard[\"Steps\"]\n")
	for i, step := range steps {
		opener, closer := "[", "]"
		if step.Optional {
			opener, closer = "([", "])"
		}
		title := step.Title
		if title == "" {
			title = step.Name
		}
		fmt.Fprintf(&sb, "        %s%s\"%d. %s\"%s\n", stepID(step.Order), opener, step.Order, escape(title), closer)
		if i > 0 {
			fmt.Fprintf(&sb, "        %s --> %s\n", stepID(steps[i-1].Order), stepID(step.Order))
		}
	}
	sb.WriteString("    end\n")

	sb.WriteString("    subgraph plan[\"Submission\"]\n")
	for _, s := range bp.Plan {
		safeID := planID(s.Name)
		opener, closer := "[/", "/]"
		switch {
		case s.DependsOn == "":
			opener, closer = "((", "))"
		case s.Fatal:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "        %s%s\"%s\"%s\n", safeID, opener, escape(s.Name), closer)
		if s.DependsOn == "" {
			continue
		}
		arrow := "-->"
		if s.EnabledBy != "" {
			arrow = fmt.Sprintf("-. \"%s\" .->", escape(s.EnabledBy))
		}
		fmt.Fprintf(&sb, "        %s %s %s\n", planID(s.DependsOn), arrow, safeID)
	}
	sb.WriteString("    end\n")
	if len(steps) > 0 && len(bp.Plan) > 0 {
		fmt.Fprintf(&sb, "    %s ==> %s\n", stepID(steps[len(steps)-1].Order), planID(bp.Plan[0].Name))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := make(map[int]bool)
		for _, order := range overlay.InvalidSteps {
			if !seen[order] && order != overlay.CurrentStep {
				seen[order] = true
				fmt.Fprintf(&sb, "    class %s invalid;\n", stepID(order))
			}
		}
		if overlay.CurrentStep > 0 {
			fmt.Fprintf(&sb, "    class %s current;\n", stepID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

func orderedSteps(bp blueprint.Blueprint) []domain.StepDefinition {
	reg, err := bp.Registry()
	if err != nil {
		return bp.Steps
	}
	return reg.Steps()
}

func stepID(order int) string {
	return fmt.Sprintf("step%d", order)
}

func planID(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return "plan_" + r.Replace(name)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
