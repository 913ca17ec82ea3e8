package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"monad-trader/internal/models"
)

// TerminalChannel prints notifications to a terminal writer.
type TerminalChannel struct {
	out     io.Writer
	enabled bool
}

// NewTerminalChannel creates a terminal notification channel writing to stdout.
func NewTerminalChannel() *TerminalChannel {
	return &TerminalChannel{out: os.Stdout, enabled: true}
}

// NewTerminalChannelWriter creates a terminal channel with a custom writer.
func NewTerminalChannelWriter(w io.Writer) *TerminalChannel {
	return &TerminalChannel{out: w, enabled: true}
}

// Name returns the channel name.
func (t *TerminalChannel) Name() string { return "terminal" }

// IsEnabled reports whether the channel is active.
func (t *TerminalChannel) IsEnabled() bool { return t.enabled }

// SetEnabled toggles the channel.
func (t *TerminalChannel) SetEnabled(enabled bool) { t.enabled = enabled }

// Send writes the notification to the terminal.
func (t *TerminalChannel) Send(_ context.Context, n Notification) error {
	prefix := "INFO"
	if n.Type == NotificationError {
		prefix = "ERROR"
	}
	_, err := fmt.Fprintf(t.out, "[%s] %s %s\n%s\n", n.Timestamp.Format("15:04:05"), prefix, n.Title, n.Message)
	return err
}

// formatCycle renders a decision record as a human-readable summary.
func formatCycle(record *models.DecisionRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  trading: %s", record.Trading.Action)
	if record.Trading.Pair != "" {
		fmt.Fprintf(&b, " %s", record.Trading.Pair)
	}
	fmt.Fprintf(&b, " (confidence %s, execute %v)\n", record.Trading.Confidence, record.Trading.ShouldExecute)

	fmt.Fprintf(&b, "  lending: %s", record.Lending.Action)
	if record.Lending.Token != "" {
		fmt.Fprintf(&b, " %s", record.Lending.Token)
	}
	fmt.Fprintf(&b, " (confidence %s, execute %v, %d actions)", record.Lending.Confidence, record.Lending.ShouldExecute, len(record.Lending.Actions))

	if len(record.ExecutionResults) > 0 {
		b.WriteString("\n  results:")
		for _, r := range record.ExecutionResults {
			switch {
			case r.Skipped:
				fmt.Fprintf(&b, "\n    %s %s skipped: %s", r.Action.Type, r.Action.Token, r.Reason)
			case r.Success:
				fmt.Fprintf(&b, "\n    %s %s ok tx=%s", r.Action.Type, r.Action.Token, r.TxHash)
			default:
				fmt.Fprintf(&b, "\n    %s %s failed: %s", r.Action.Type, r.Action.Token, r.Error)
			}
		}
	}

	return b.String()
}
