package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spicecomment/internal/host"
	"spicecomment/internal/logging"
	"spicecomment/internal/protocol"
	"spicecomment/internal/session"
	"spicecomment/internal/tui/state"
	"spicecomment/internal/tui/util"
	"spicecomment/internal/tui/widgets/diff"
	"spicecomment/internal/tui/widgets/editor"
	"spicecomment/internal/tui/widgets/helpoverlay"
	"spicecomment/internal/tui/widgets/statusbar"
)

// Dispatcher takes inbound messages from the terminal. *session.Controller
// satisfies it.
type Dispatcher interface {
	HandleMessage(ctx context.Context, in protocol.Inbound) error
}

// Run opens path in the terminal editor and blocks until the user quits.
func Run(ctx context.Context, path string, deps host.Deps) error {
	log := logging.Component("tui")
	surface := NewSurface()
	defer surface.Close()

	opts := deps.Options
	opts.NoColor = util.NoColor(opts.NoColor)
	ctrl := session.New(path, deps.Loader, deps.Saver, surface, opts, deps.Log)
	defer func() {
		ctrl.Dispose()
		ctrl.Wait()
	}()

	if deps.Watch {
		w, err := host.Watch(path, host.WatchDebounce, func() {
			_ = ctrl.ExternalChange(ctx)
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("file watch unavailable")
		} else {
			defer w.Close()
		}
	}

	m := newModel(ctx, path, ctrl, surface, opts.NoColor)
	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// ===== Model =====

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
)

type keyMap struct {
	Brief   key.Binding
	Comment key.Binding
	Diff    key.Binding
	Save    key.Binding
	Reset   key.Binding
	Revert  key.Binding
	Copy    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Brief:   key.NewBinding(key.WithKeys("ctrl+b")),
	Comment: key.NewBinding(key.WithKeys("ctrl+o", "esc")),
	Diff:    key.NewBinding(key.WithKeys("ctrl+d")),
	Save:    key.NewBinding(key.WithKeys("ctrl+s")),
	Reset:   key.NewBinding(key.WithKeys("ctrl+r")),
	Revert:  key.NewBinding(key.WithKeys("ctrl+l")),
	Copy:    key.NewBinding(key.WithKeys("ctrl+y")),
	Help:    key.NewBinding(key.WithKeys("f1")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q")),
}

type clipboardResultMsg struct{ err error }

type model struct {
	ctx     context.Context
	path    string
	ctrl    Dispatcher
	surface *Surface
	noColor bool

	// widgets
	editor    textarea.Model
	brief     viewport.Model
	diffPane  viewport.Model
	title     editor.Editor
	status    statusbar.StatusBar
	help      helpoverlay.HelpOverlay
	diffFrame diff.DiffView

	// session view, as last reported
	view     state.ViewState
	vis      state.Visibility
	editable bool
	level    string
	lastDiff diff.Summary

	briefText string

	showHelp  bool
	quitArmed bool
	width     int
	height    int
}

func newModel(ctx context.Context, path string, ctrl Dispatcher, s *Surface, noColor bool) model {
	ta := textarea.New()
	ta.Placeholder = "No comment stored in this kernel"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	return model{
		ctx:       ctx,
		path:      path,
		ctrl:      ctrl,
		surface:   s,
		noColor:   noColor,
		editor:    ta,
		brief:     viewport.New(1, 1),
		diffPane:  viewport.New(1, 1),
		title:     editor.NewEditor(),
		status:    statusbar.NewStatusBar(util.DefaultPalette(), noColor),
		help:      helpoverlay.NewHelpOverlay(),
		diffFrame: diff.NewDiffView(),
		view:      state.ViewState{Notice: "Loading..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.surface.next(), m.dispatch(protocol.Ready{}))
}

// dispatch hands one message to the session. Errors are reported back to us
// as status messages, so only transport failures surface here.
func (m *model) dispatch(in protocol.Inbound) tea.Cmd {
	if err := m.ctrl.HandleMessage(m.ctx, in); err != nil {
		m.view.Notice = err.Error()
		m.level = protocol.LevelError
	}
	return nil
}

func (m *model) action(a state.Action) tea.Cmd {
	return m.dispatch(protocol.Action{Name: a.String()})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case outboundMsg:
		m.apply(msg.m)
		return m, m.surface.next()

	case clipboardResultMsg:
		if msg.err != nil {
			m.setNotice(protocol.LevelError, fmt.Sprintf("Copy failed: %v", msg.err))
		} else {
			m.setNotice(protocol.LevelInfo, "Copied to clipboard")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		if m.view.Dirty && !m.quitArmed {
			m.quitArmed = true
			m.setNotice(protocol.LevelWarn, "Unsaved changes. Press ctrl+c again to quit.")
			return m, nil
		}
		return m, tea.Quit
	}
	m.quitArmed = false

	switch {
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case m.showHelp:
		// any other key closes help
		m.showHelp = false
		return m, nil
	case key.Matches(msg, keys.Brief):
		return m, m.action(state.ViewBrief)
	case key.Matches(msg, keys.Comment) && m.view.Mode != state.Comment:
		return m, m.action(state.ViewComment)
	case key.Matches(msg, keys.Diff):
		return m, m.action(state.ShowDiff)
	case key.Matches(msg, keys.Save):
		return m, m.action(state.Save)
	case key.Matches(msg, keys.Reset):
		return m, m.action(state.Reset)
	case key.Matches(msg, keys.Revert):
		return m, m.action(state.Revert)
	case key.Matches(msg, keys.Copy):
		return m, m.copy()
	}

	var cmd tea.Cmd
	switch m.view.Mode {
	case state.Comment:
		if !m.editable {
			return m, nil
		}
		before := m.editor.Value()
		m.editor, cmd = m.editor.Update(msg)
		if after := m.editor.Value(); after != before {
			m.dispatch(protocol.Edit{Value: after})
		}
	case state.Brief:
		m.brief, cmd = m.brief.Update(msg)
	case state.Diff:
		m.diffPane, cmd = m.diffPane.Update(msg)
	}
	return m, cmd
}

// apply folds one session message into the model.
func (m *model) apply(out protocol.Outbound) {
	switch o := out.(type) {
	case protocol.Init:
		m.editable = o.Editable
		m.editor.SetValue(o.Value)
		m.briefText = o.Brief
		m.brief.SetContent(o.Brief)
		m.brief.GotoTop()
		m.setNotice("", "")
	case protocol.State:
		m.view.Mode = state.ParseMode(o.Mode)
		m.view.Dirty = o.Dirty
		m.vis = o.Visibility
		m.editable = o.Editable
		if m.view.Mode == state.Comment && m.editable {
			m.editor.Focus()
		} else {
			m.editor.Blur()
		}
	case protocol.GetFileData:
		resp, err := protocol.NewFileDataResponse(o.RequestID, m.editor.Value())
		if err != nil {
			m.setNotice(protocol.LevelError, err.Error())
			return
		}
		m.dispatch(resp)
	case protocol.Buffer:
		m.editor.SetValue(o.Value)
	case protocol.Diff:
		m.lastDiff = diff.Summary{Strategy: o.Strategy, Body: o.ANSI, Added: o.Added, Removed: o.Removed}
		m.diffPane.SetContent(m.diffFrame.View(m.lastDiff))
		m.diffPane.GotoTop()
	case protocol.Saved:
		m.setNotice("saved", "Comment saved")
	case protocol.Update:
		// the session follows up with a status telling the user to revert
	case protocol.Status:
		if m.level == "saved" && o.Level == protocol.LevelInfo && o.Message == m.view.Notice {
			return
		}
		m.setNotice(o.Level, o.Message)
	}
}

func (m *model) setNotice(level, msg string) {
	m.level = level
	m.view.Notice = msg
}

func (m *model) resize(w, h int) {
	m.width, m.height = w, h
	// title line above, status line below
	body := h - 3
	if body < 1 {
		body = 1
	}
	m.editor.SetWidth(w)
	m.editor.SetHeight(body)
	m.brief.Width, m.brief.Height = w, body
	m.diffPane.Width, m.diffPane.Height = w, body
}

// copy puts the visible panel's text on the clipboard.
func (m *model) copy() tea.Cmd {
	text := m.editor.Value()
	if m.view.Mode == state.Brief {
		text = m.briefText
	}
	return func() tea.Msg {
		return clipboardResultMsg{err: clipboard.WriteAll(text)}
	}
}

func (m *model) View() string {
	var body string
	switch {
	case m.showHelp:
		body = m.help.View(m.view.Mode, m.vis)
	case m.view.Mode == state.Brief:
		body = titleStyle.Render("Summary") + "\n" + m.brief.View()
	case m.view.Mode == state.Diff:
		body = titleStyle.Render("Changes") + "\n" + m.diffPane.View()
	case m.view.Mode == state.Comment:
		body = m.title.View(m.path, m.view, m.editable, m.editor.View())
	default:
		body = faintStyle.Render("Reading " + m.path)
	}
	status := m.status.View(m.view, m.editable, m.level)
	if !m.showHelp {
		status += faintStyle.Render("  f1 help")
	}
	return body + "\n" + status
}
