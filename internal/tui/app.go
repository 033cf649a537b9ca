// Package tui is an interactive session browser: a list of recent sessions
// on the left, the reconstructed conversation on the right.
package tui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sinh-x/ai-usage-log/internal/cli"
	"github.com/sinh-x/ai-usage-log/internal/model"
	"github.com/sinh-x/ai-usage-log/internal/source"
)

const (
	listPaneWidth  = 42
	chromeHeight   = 4 // header + status bar + pane borders
	statusDuration = 2 * time.Second
)

type sessionsLoadedMsg struct {
	sessions []model.SessionInfo
	err      error
}

type sessionLoadedMsg struct {
	sessionID string
	record    *model.SessionRecord
	err       error
}

type clearStatusMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	reader  *source.Reader
	project string
	limit   int

	sessions []model.SessionInfo
	cursor   int

	detail       *model.SessionRecord
	detailScroll int

	spinner spinner.Model

	width   int
	height  int
	loading bool

	statusMsg string
	err       error
}

// NewApp creates the browser model. Sessions load asynchronously on Init.
func NewApp(reader *source.Reader, projectPath string, limit int) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	return &App{
		reader:  reader,
		project: projectPath,
		limit:   limit,
		spinner: sp,
		loading: true,
		width:   80,
		height:  24,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadSessions())
}

func (a *App) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := a.reader.ListSessions(a.project, a.limit)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

func (a *App) loadDetail() tea.Cmd {
	if a.cursor >= len(a.sessions) {
		return nil
	}
	info := a.sessions[a.cursor]
	return func() tea.Msg {
		rec, err := a.reader.ReadSession(info.SessionID, info.ProjectPath)
		return sessionLoadedMsg{sessionID: info.SessionID, record: rec, err: err}
	}
}

func clearStatusAfter() tea.Cmd {
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case sessionsLoadedMsg:
		a.loading = false
		a.sessions = msg.sessions
		a.err = msg.err
		if a.cursor >= len(a.sessions) {
			a.cursor = 0
		}
		if len(a.sessions) > 0 {
			return a, a.loadDetail()
		}
		return a, nil

	case sessionLoadedMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("error: %v", msg.err)
			return a, clearStatusAfter()
		}
		// Drop stale loads after fast cursor movement.
		if a.cursor < len(a.sessions) && a.sessions[a.cursor].SessionID != msg.sessionID {
			return a, nil
		}
		a.detail = msg.record
		a.detailScroll = 0
		return a, nil

	case clearStatusMsg:
		a.statusMsg = ""
		return a, nil

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < len(a.sessions)-1 {
			a.cursor++
			return a, a.loadDetail()
		}

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
			return a, a.loadDetail()
		}

	case "g":
		if a.cursor != 0 {
			a.cursor = 0
			return a, a.loadDetail()
		}

	case "G":
		if n := len(a.sessions); n > 0 && a.cursor != n-1 {
			a.cursor = n - 1
			return a, a.loadDetail()
		}

	case "ctrl+d", "pgdown":
		a.scrollDetail(a.paneHeight() / 2)

	case "ctrl+u", "pgup":
		a.scrollDetail(-a.paneHeight() / 2)

	case "y", "enter":
		if a.cursor < len(a.sessions) {
			id := a.sessions[a.cursor].SessionID
			if err := clipboard.WriteAll("claude --resume " + id); err != nil {
				a.statusMsg = fmt.Sprintf("clipboard: %v", err)
			} else {
				a.statusMsg = "resume command copied"
			}
			return a, clearStatusAfter()
		}

	case "r":
		a.loading = true
		return a, tea.Batch(a.spinner.Tick, a.loadSessions())
	}

	return a, nil
}

// scrollDetail moves the detail pane by delta lines, clamped so the last
// line can always reach the top of the pane.
func (a *App) scrollDetail(delta int) {
	if a.detail == nil {
		return
	}
	maxScroll := len(a.detailLines()) - 1
	if maxScroll < 0 {
		maxScroll = 0
	}
	a.detailScroll += delta
	if a.detailScroll < 0 {
		a.detailScroll = 0
	}
	if a.detailScroll > maxScroll {
		a.detailScroll = maxScroll
	}
}

func (a *App) detailWidth() int {
	w := a.width - listPaneWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (a *App) paneHeight() int {
	h := a.height - chromeHeight
	if h < 3 {
		h = 3
	}
	return h
}
