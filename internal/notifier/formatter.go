package notifier

import (
	"fmt"
	"strings"
	"time"

	"FlowSentinel/internal/model"
)

// FormatStatus formats the current operational state for display.
func FormatStatus(s *model.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💧 <b>FlowSentinel</b> | %s\n\n", statusLabel(s.Status)))
	b.WriteString(fmt.Sprintf("Flow: %.2f L/min (%.3f L/sec)\n", s.FlowPerMinute, s.FlowPerSecond))
	b.WriteString(fmt.Sprintf("Total: %.3f L\n", s.TotalLiters))
	b.WriteString(fmt.Sprintf("Estimated cost: %s\n", s.EstimatedCost.StringFixed(2)))
	if s.SessionStart != nil {
		b.WriteString(fmt.Sprintf("Session: since %s (%s)\n", s.SessionStart.Format("15:04:05"), formatDuration(s.SessionDuration)))
	}
	if s.LeakActive {
		b.WriteString(fmt.Sprintf("Leak: active for %s\n", formatDuration(s.LeakDuration)))
	}
	if !s.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Updated: %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05")))
	}
	return b.String()
}

// FormatLeakAlert formats a leak transition.
func FormatLeakAlert(e *model.Event) string {
	switch e.Kind {
	case model.EventLeakDetected:
		return fmt.Sprintf("🚨 <b>Leak detected</b>\n\nSteady flow of %.2f L/min for %s.\nCheck taps, toilet valves and pipes.",
			e.Flow, formatDuration(e.Duration))
	case model.EventLeakCleared:
		return fmt.Sprintf("✅ <b>Leak cleared</b>\n\nFlow dropped to %.2f L/min after %s.",
			e.Flow, formatDuration(e.Duration))
	}
	return ""
}

// FormatLeakReminder formats the periodic reminder sent while a leak stays active.
func FormatLeakReminder(s *model.Snapshot) string {
	return fmt.Sprintf("⚠️ <b>Leak still active</b> | %s\n\nFlow: %.2f L/min\nTotal so far: %.3f L (%s)",
		formatDuration(s.LeakDuration), s.FlowPerMinute, s.TotalLiters, s.EstimatedCost.StringFixed(2))
}

func statusLabel(st model.Status) string {
	switch st {
	case model.StatusFlowing:
		return "🚿 FLOWING"
	case model.StatusLeakDetected:
		return "🚨 LEAK DETECTED"
	default:
		return "💤 IDLE"
	}
}

func formatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
