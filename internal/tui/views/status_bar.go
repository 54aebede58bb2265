package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/atendehq/atende/internal/health"
	"github.com/atendehq/atende/internal/tui/model"
	"github.com/rivo/tview"
)

// StatusBar shows the profile, backend health, clock and flash line.
type StatusBar struct {
	*tview.TextView
	profile string
	state   health.State
	hints   string
	flash   string
	flashLv model.Level
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	return &StatusBar{TextView: tv, state: health.Idle}
}

// SetProfile sets the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetHealth updates the backend health display.
func (sb *StatusBar) SetHealth(s health.State) {
	sb.state = s
	sb.render()
}

// SetHints sets the key hint line for the active page.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = strings.Join(hints, "  ")
	sb.render()
}

// SetFlash updates the transient message area.
func (sb *StatusBar) SetFlash(msg string, level model.Level) {
	sb.flash = msg
	sb.flashLv = level
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s",
		sb.profile, healthLabel(sb.state), time.Now().Format("15:04"))
	if sb.hints != "" {
		line += fmt.Sprintf(" | [::d]%s[-:-:-]", tview.Escape(sb.hints))
	}
	if sb.flash != "" {
		color := "yellow"
		if sb.flashLv == model.LevelError {
			color = "red"
		}
		line += fmt.Sprintf(" | [%s]%s[-]", color, tview.Escape(sb.flash))
	}
	_, _ = fmt.Fprint(sb, line)
}

func healthLabel(s health.State) string {
	switch s {
	case health.Live:
		return "[green]LIVE[-]"
	case health.Polling:
		return "[yellow]SYNCING[-]"
	case health.Degraded:
		return "[red]DEGRADED[-]"
	default:
		return "[::d]IDLE[-]"
	}
}
