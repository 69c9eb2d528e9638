package llm

import (
	"fmt"
	"strings"

	"github.com/steerrt/agentrt/pkg/types"
)

// formatCommandExecution renders a command-execution user content block as
// plain text for providers with no native concept of it.
func formatCommandExecution(uc types.UserContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$ %s\n", uc.Command)
	if uc.Stdout != "" {
		b.WriteString(uc.Stdout)
	}
	if uc.Stderr != "" {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.WriteString(uc.Stderr)
	}
	fmt.Fprintf(&b, "\n(exit code %d)", uc.ExitCode)
	return b.String()
}

// formatAppCommand renders an app-command user content block as plain text.
func formatAppCommand(uc types.UserContent) string {
	if len(uc.Response) > 0 {
		return fmt.Sprintf("/%s\n%s", uc.AppCommand, string(uc.Response))
	}
	return fmt.Sprintf("/%s", uc.AppCommand)
}
