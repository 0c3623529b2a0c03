package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/vpn"
)

var (
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// isTerminal reports whether w is an interactive terminal. Styling is only
// applied in that case so piped output stays plain.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func render(w io.Writer, style lipgloss.Style, s string) string {
	if !isTerminal(w) {
		return s
	}
	return style.Render(s)
}

// newTable returns a tabwriter that prints a header and its underline.
func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	fmt.Fprintln(tw, strings.Join(underline, "\t"))
	return tw
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, render(w, goodStyle, "✓")+" "+fmt.Sprintf(format, args...))
}

func statusText(w io.Writer, s common.ServiceStatus) string {
	switch s {
	case common.ServiceRunning:
		return render(w, goodStyle, s.String())
	case common.ServiceStopped:
		return render(w, warnStyle, s.String())
	case common.ServiceNotInstalled:
		return render(w, badStyle, s.String())
	default:
		return render(w, mutedStyle, s.String())
	}
}

func healthText(w io.Writer, h vpn.HealthState) string {
	switch h {
	case vpn.HealthHealthy:
		return render(w, goodStyle, h.String())
	case vpn.HealthDegraded:
		return render(w, warnStyle, h.String())
	case vpn.HealthUnhealthy:
		return render(w, badStyle, h.String())
	default:
		return render(w, mutedStyle, h.String())
	}
}

// formatHandshake renders a handshake timestamp relative to now.
func formatHandshake(ts int64, now time.Time) string {
	if ts == 0 {
		return "never"
	}
	return humanize.RelTime(time.Unix(ts, 0), now, "ago", "from now")
}

func formatBytes(n uint64) string {
	return humanize.IBytes(n)
}

// orDash replaces an empty cell.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// shortKey abbreviates a base64 key for narrow tables.
func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:8] + "…" + key[len(key)-4:]
}
