package sop

import (
	"fmt"
	"strings"
)

// PromptBlock serializes the whole catalog into a structured text block for
// the model's system prompt. Baking the full library into the base context
// gives zero-latency recall: no per-query retrieval step.
func (c *Catalog) PromptBlock() string {
	blocks := make([]string, 0, len(c.procedures))
	for _, p := range c.procedures {
		var b strings.Builder
		fmt.Fprintf(&b, "## SOP: %s\n", p.Title)
		fmt.Fprintf(&b, "**Key:** %s\n", p.Key)
		if len(p.TriggerPatterns) > 0 {
			fmt.Fprintf(&b, "**Triggers:** %s\n", strings.Join(p.TriggerPatterns, ", "))
		} else if p.Fallback {
			b.WriteString("**Triggers:** (fallback - applies when nothing else matches)\n")
		}
		fmt.Fprintf(&b, "**Root Cause:** %s\n", p.RootCause)
		b.WriteString("**Symptoms:**\n")
		for _, s := range p.Symptoms {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
		b.WriteString("**Resolution Steps:**\n")
		for i, step := range p.RemediationSteps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
		fmt.Fprintf(&b, "**Escalate To:** %s", p.EscalateTo)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// FormatProcedure renders one procedure for display in an answer or the
// dashboard.
func FormatProcedure(p Procedure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**SOP: %s**\n\n", p.Title)
	fmt.Fprintf(&b, "**Root Cause:** %s\n\n", p.RootCause)
	b.WriteString("**Resolution Steps:**\n")
	for i, step := range p.RemediationSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\n**Escalate To:** `%s`", p.EscalateTo)
	return b.String()
}
