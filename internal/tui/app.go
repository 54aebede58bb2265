// Package tui is the interactive operator console.
package tui

import (
	"context"
	"time"

	"github.com/atendehq/atende/internal/bus"
	"github.com/atendehq/atende/internal/health"
	"github.com/atendehq/atende/internal/media"
	"github.com/atendehq/atende/internal/outbox"
	"github.com/atendehq/atende/internal/sync"
	"github.com/atendehq/atende/internal/tui/keys"
	"github.com/atendehq/atende/internal/tui/model"
	"github.com/atendehq/atende/internal/tui/ui"
	"github.com/atendehq/atende/internal/tui/views"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const flashDuration = 5 * time.Second

// App is the console application shell. It owns the terminal; everything it
// learns arrives over the bus and through engine snapshots.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	registry *keys.Registry
	flash    *model.Flash

	engine   *sync.Engine
	cache    *media.Cache
	staging  *outbox.Staging
	pipeline *outbox.Pipeline
	bus      *bus.Bus
	logger   *zap.Logger

	statusBar   *views.StatusBar
	convList    *views.ConversationList
	thread      *views.MessageThread
	composer    *views.Composer
	helpView    *views.HelpView
	filterInput *tview.InputField
	attachInput *tview.InputField
	listFlex    *tview.Flex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp wires the console against an already-running engine.
func NewApp(profileName string, engine *sync.Engine, cache *media.Cache,
	staging *outbox.Staging, pipeline *outbox.Pipeline, b *bus.Bus, logger *zap.Logger) *App {

	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		registry:  keys.NewRegistry(),
		flash:     &model.Flash{},
		engine:    engine,
		cache:     cache,
		staging:   staging,
		pipeline:  pipeline,
		bus:       b,
		logger:    logger,
		statusBar: views.NewStatusBar(),
		convList:  views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		composer:  views.NewComposer(theme),
		helpView:  views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.buildInputs(theme)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) buildInputs(theme *ui.Theme) {
	a.filterInput = tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0)
	a.filterInput.SetFieldBackgroundColor(theme.BgColor)
	a.filterInput.SetLabelColor(theme.HintKeyColor)

	a.attachInput = tview.NewInputField().
		SetLabel(" File path: ").
		SetFieldWidth(0)
	a.attachInput.SetBorder(true)
	a.attachInput.SetBorderColor(theme.BorderFocusColor)
	a.attachInput.SetTitle(" Attach ")
	a.attachInput.SetTitleColor(theme.TitleColor)
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddGlobal(&keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.switchPage("help") },
	})

	a.registry.AddPage("list", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:filter", Visible: true,
		Handler: func() { a.showFilter() },
	})

	a.registry.AddPage("thread", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.composer.Input()) },
	})
	a.registry.AddPage("thread", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:attach", Visible: true,
		Handler: func() { a.showAttach() },
	})
	a.registry.AddPage("thread", &keys.Action{
		Rune: 'x', Key: tcell.KeyRune,
		Description: "x:unstage", Visible: true,
		Handler: func() {
			a.staging.Clear()
			a.composer.SetStaged(nil)
		},
	})
	a.registry.AddPage("thread", &keys.Action{
		Rune: 'm', Key: tcell.KeyRune,
		Description: "m:bot/human", Visible: true,
		Handler: func() { a.toggleMode() },
	})
	a.registry.AddPage("thread", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:reset bot", Visible: true,
		Handler: func() { a.resetBot() },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		if id := a.convList.SelectedConversation(); id != 0 {
			a.openConversation(id)
		}
	})

	a.composer.SetOnSend(func(text string) { a.send(text) })

	a.filterInput.SetChangedFunc(func(text string) {
		a.convList.SetFilter(text)
	})
	a.filterInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			a.filterInput.SetText("")
			a.convList.ClearFilter()
		}
		a.hideFilter()
	})

	a.attachInput.SetDoneFunc(func(key tcell.Key) {
		path := a.attachInput.GetText()
		a.pages.HidePage("attach")
		a.app.SetFocus(a.thread)
		if key != tcell.KeyEnter || path == "" {
			return
		}
		att, err := a.staging.Stage(path)
		if err != nil {
			a.setFlash(model.LevelError, "Attach failed: "+err.Error())
			return
		}
		a.attachInput.SetText("")
		a.composer.SetStaged(&att)
	})

	a.composer.Input().SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread)
			return nil
		}
		return ev
	})
}

func (a *App) setupLayout() {
	a.listFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.convList, 0, 1, true).
		AddItem(a.filterInput, 0, 0, false)

	threadFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, true).
		AddItem(a.composer, 4, 0, false)

	attachModal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(a.attachInput, 3, 0, true).
			AddItem(nil, 0, 1, false), 0, 2, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage("list", a.listFlex, true, true)
	a.pages.AddPage("thread", threadFlex, true, false)
	a.pages.AddPage("help", a.helpView, true, false)
	a.pages.AddPage("attach", attachModal, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch page {
			case "thread", "help":
				a.closeThread()
				return nil
			}
		}

		// Text inputs consume keys themselves.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

func (a *App) openConversation(id int64) {
	a.engine.Select(a.ctx, id)
	if c, ok := a.engine.Conversation(id); ok {
		a.thread.SetConversation(c)
	}
	a.renderThread()
	if att, ok := a.staging.Pending(); ok {
		a.composer.SetStaged(&att)
	} else {
		a.composer.SetStaged(nil)
	}
	a.convList.Update(a.engine.Conversations())
	a.switchPage("thread")
	a.app.SetFocus(a.thread)
}

func (a *App) closeThread() {
	a.engine.ClearSelection()
	a.switchPage("list")
	a.app.SetFocus(a.convList)
}

// switchPage raises the page and swaps the status bar hint line to its
// bindings.
func (a *App) switchPage(name string) {
	a.pages.SwitchToPage(name)
	a.statusBar.SetHints(a.registry.Hints(name))
}

func (a *App) showFilter() {
	a.filterInput.SetText("")
	a.listFlex.ResizeItem(a.filterInput, 1, 0)
	a.app.SetFocus(a.filterInput)
}

func (a *App) hideFilter() {
	a.listFlex.ResizeItem(a.filterInput, 0, 0)
	a.app.SetFocus(a.convList)
}

func (a *App) showAttach() {
	a.pages.ShowPage("attach")
	a.app.SetFocus(a.attachInput)
}

func (a *App) send(text string) {
	id := a.engine.SelectedID()
	if !a.pipeline.CanSend(id, text) {
		return
	}
	go func() {
		_, staged := a.staging.Pending()
		var err error
		if staged {
			err = a.pipeline.SendStaged(a.ctx, id, text)
		} else {
			err = a.pipeline.SendText(a.ctx, id, text)
		}
		if err != nil {
			return // draft stays put; the bus flash already reported it
		}
		a.app.QueueUpdateDraw(func() {
			a.composer.ClearText()
			a.composer.SetStaged(nil)
		})
	}()
}

func (a *App) toggleMode() {
	id := a.engine.SelectedID()
	if id == 0 {
		return
	}
	go func() {
		_ = a.engine.ToggleMode(a.ctx, id)
		a.app.QueueUpdateDraw(func() {
			if c, ok := a.engine.Conversation(id); ok {
				a.thread.SetConversation(c)
			}
			a.convList.Update(a.engine.Conversations())
		})
	}()
}

func (a *App) resetBot() {
	id := a.engine.SelectedID()
	if id == 0 {
		return
	}
	go func() { _ = a.engine.ResetBot(a.ctx, id) }()
}

// renderThread redraws the thread view and kicks off media resolution for
// any attachments not yet cached.
func (a *App) renderThread() {
	msgs := a.engine.Messages()
	for _, m := range msgs {
		if m.MediaID != "" {
			if _, ok := a.cache.Lookup(m.MediaID); !ok {
				a.cache.Resolve(a.ctx, m.MediaID)
			}
		}
	}
	a.thread.Update(msgs, a.cache.Lookup)
}

func (a *App) setFlash(level model.Level, msg string) {
	a.flash.Set(level, msg, flashDuration)
	a.statusBar.SetFlash(msg, level)
}

// eventLoop applies bus events to the views. All drawing goes through
// QueueUpdateDraw; the loop itself never touches tview state directly.
func (a *App) eventLoop() {
	events, unsub := a.bus.Subscribe("", 64)
	defer unsub()

	for {
		select {
		case evt := <-events:
			a.apply(evt)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) apply(evt bus.Event) {
	switch evt.Kind {
	case bus.KindConversationsUpdated:
		a.app.QueueUpdateDraw(func() {
			a.convList.Update(a.engine.Conversations())
			if id := a.engine.SelectedID(); id != 0 {
				if c, ok := a.engine.Conversation(id); ok {
					a.thread.SetConversation(c)
				}
			}
		})
	case bus.KindThreadUpdated, bus.KindMediaResolved:
		a.app.QueueUpdateDraw(func() { a.renderThread() })
	case bus.KindHealthChanged:
		if change, ok := evt.Payload.(health.Change); ok {
			a.app.QueueUpdateDraw(func() { a.statusBar.SetHealth(change.To) })
		}
	case bus.KindNotifyInfo:
		if msg, ok := evt.Payload.(string); ok {
			a.app.QueueUpdateDraw(func() { a.setFlash(model.LevelInfo, msg) })
		}
	case bus.KindNotifyError:
		if msg, ok := evt.Payload.(string); ok {
			a.app.QueueUpdateDraw(func() { a.setFlash(model.LevelError, msg) })
		}
	}
}

// clockLoop keeps the status bar clock current and expires flashes.
func (a *App) clockLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				msg, level := a.flash.Get()
				a.statusBar.SetFlash(msg, level)
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the console and blocks until it exits.
func (a *App) Run() error {
	a.engine.SetVisible(true)
	a.convList.Update(a.engine.Conversations())
	a.statusBar.SetHints(a.registry.Hints("list"))
	a.engine.PollNow()

	go a.eventLoop()
	go a.clockLoop()

	return a.app.Run()
}

// Stop shuts the console down.
func (a *App) Stop() {
	a.engine.SetVisible(false)
	a.cancel()
	a.app.Stop()
}
