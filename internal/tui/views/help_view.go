package views

import (
	"fmt"

	"github.com/atendehq/atende/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key binding reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{TextView: tv}
	hv.render(theme)
	return hv
}

func (hv *HelpView) render(theme *ui.Theme) {
	kc := fmt.Sprintf("#%06x", theme.HintKeyColor.Hex())

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%s]?[-:-:-]      Help                [%s]Esc[-:-:-]    Cancel / Go back
  [%s]q[-:-:-]      Quit                [%s]Ctrl-C[-:-:-] Quit immediately

  [::b]Conversation List[-:-:-]

  [%s]Enter[-:-:-]  Open conversation   [%s]/[-:-:-]      Filter
  [%s]j/Down[-:-:-] Move down           [%s]k/Up[-:-:-]   Move up

  [::b]Message Thread[-:-:-]

  [%s]i[-:-:-]      Focus composer      [%s]Enter[-:-:-]  Send (in composer)
  [%s]a[-:-:-]      Attach a file       [%s]x[-:-:-]      Discard staged attachment
  [%s]m[-:-:-]      Toggle bot/human    [%s]r[-:-:-]      Restart bot dialogue
  [%s]Esc[-:-:-]    Back to list

  [::b]Status Bar[-:-:-]

  profile | backend health | clock | last notification
`,
		kc, kc, kc, kc,
		kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc, kc,
	)

	_, _ = fmt.Fprint(hv, help)
}
