package nl2sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BuildSystemPrompt renders t for one request. The output depends only on its
// arguments.
func BuildSystemPrompt(t Template, today time.Time, referenceYear int) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(t.Role))
	b.WriteString("\n\n### Database Schema\n")
	b.WriteString(strings.TrimSpace(t.Schema))

	b.WriteString("\n\n### Rules\n")
	for i, rule := range t.Rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}

	if len(t.Examples) > 0 {
		b.WriteString("\n### Examples\n")
		for i, example := range t.Examples {
			fmt.Fprintf(&b, "%c. **%s**\n", 'A'+rune(i), example.Name)
			fmt.Fprintf(&b, "   Question: \"%s\"\n", example.Question)
			fmt.Fprintf(&b, "   SQL: `%s`\n", example.SQL)
			if example.Note != "" {
				fmt.Fprintf(&b, "   Note: %s\n", example.Note)
			}
		}
	}

	context := strings.NewReplacer(
		"{today}", today.Format(time.DateOnly),
		"{reference_year}", strconv.Itoa(referenceYear),
	).Replace(t.Context)
	b.WriteString("\n### Context\n")
	b.WriteString(context)
	b.WriteString("\n")
	return b.String()
}
