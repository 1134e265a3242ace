package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	NowPlayingView ViewState = iota
	HistoryView
)

const historyLimit = 50

// Requester asks the relay for a fresh snapshot. Implemented by relay.Trigger.
type Requester interface {
	Request() (bool, error)
}

// HistorySource returns the most recent plays, newest first.
type HistorySource func(limit int) ([]*models.Play, error)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	inbox   *bus.Inbox
	trigger Requester
	history HistorySource
	now     func() time.Time

	view        ViewState
	width       int
	height      int
	np          *models.NowPlaying
	status      string
	err         error
	closed      bool
	spinner     spinner.Model
	historyList list.Model
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model reading snapshots from inbox.
//
// trigger and history are optional; without them the refresh and history keys are disabled.
func NewModel(ctx context.Context, inbox *bus.Inbox, trigger Requester, history HistorySource) *Model {
	return &Model{
		ctx:         ctx,
		inbox:       inbox,
		trigger:     trigger,
		history:     history,
		now:         time.Now,
		view:        NowPlayingView,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(NewStyle(styles.accent))),
		historyList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Init starts listening for snapshots.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForNowPlaying(), m.spinner.Tick, tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.historyList.SetSize(max(msg.Width-4, 0), max(msg.Height-6, 0))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgNowPlaying:
		np := msg.data.(models.NowPlaying)
		m.np = &np
		m.status = ""
		return m, m.waitForNowPlaying()

	case MsgInboxClosed:
		err, _ := msg.data.(error)
		m.closed = true
		if !errors.Is(err, context.Canceled) {
			m.err = err
		}
		return m, tea.Quit

	case MsgHistoryFetched:
		data := msg.data.(struct {
			plays []*models.Play
			err   error
		})
		if data.err != nil {
			m.status = fmt.Sprintf("history unavailable: %v", data.err)
			m.view = NowPlayingView
			return m, nil
		}
		cmd := m.historyList.SetItems(playItems(data.plays))
		m.historyList.Title = fmt.Sprintf("Recent Plays (%d)", len(data.plays))
		return m, cmd

	case MsgRefreshed:
		data := msg.data.(struct {
			sent bool
			err  error
		})
		switch {
		case data.err != nil:
			m.status = fmt.Sprintf("refresh failed: %v", data.err)
		case data.sent:
			m.status = "refresh requested"
		default:
			m.status = "refresh throttled, try again shortly"
		}
		return m, nil

	case MsgTick:
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && !(m.view == HistoryView && m.historyList.SettingFilter()) {
		return m, tea.Quit
	}

	switch m.view {
	case NowPlayingView:
		switch {
		case key.Matches(msg, m.keys.refresh) && m.trigger != nil:
			return m, m.refresh()
		case key.Matches(msg, m.keys.history) && m.history != nil:
			m.view = HistoryView
			return m, m.fetchHistory()
		}
		return m, nil

	case HistoryView:
		if key.Matches(msg, m.keys.back) && !m.historyList.SettingFilter() {
			m.view = NowPlayingView
			return m, nil
		}
	}

	return m.updateList(msg)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != HistoryView {
		return m, nil
	}
	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case HistoryView:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.historyList.View(), helpView)
	default:
		return m.renderNowPlaying()
	}
}

func (m *Model) renderNowPlaying() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Now Playing"))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.np == nil:
		fmt.Fprintf(&b, "%s Waiting for the player...", m.spinner.View())
	default:
		np := m.current()
		state := styles.warn.Render("⏸ paused")
		if np.IsPlaying {
			state = styles.ok.Render("▶ playing")
		}
		fmt.Fprintf(&b, "%s\n%s\n\n%s  %s",
			NewBold(styles.accent).Render(np.Track.Title),
			trackSummary(np.Track),
			formatter.Progress(np, m.barWidth()),
			state)
	}

	if m.status != "" {
		fmt.Fprintf(&b, "\n\n%s", styles.help.Render(m.status))
	}

	bindings := []key.Binding{m.keys.quit}
	if m.history != nil {
		bindings = append([]key.Binding{m.keys.history}, bindings...)
	}
	if m.trigger != nil {
		bindings = append([]key.Binding{m.keys.refresh}, bindings...)
	}

	return fmt.Sprintf("%s\n%s", styles.frame.Render(b.String()), m.help.ShortHelpView(bindings))
}

// current returns the snapshot with progress advanced by the time since it was fetched.
func (m *Model) current() models.NowPlaying {
	np := *m.np
	if !np.IsPlaying || np.FetchedAt.IsZero() {
		return np
	}
	elapsed := m.now().Sub(np.FetchedAt)
	if elapsed > 0 {
		np.ProgressMS += int(elapsed / time.Millisecond)
	}
	if d := np.Track.DurationMS; d > 0 && np.ProgressMS > d {
		np.ProgressMS = d
	}
	return np
}

func (m *Model) barWidth() int {
	if m.width <= 0 {
		return 30
	}
	return min(max(m.width-30, 10), 60)
}

func (m *Model) waitForNowPlaying() tea.Cmd {
	return func() tea.Msg {
		for {
			msg, err := m.inbox.Next(m.ctx)
			if err != nil {
				return inboxClosedMsg(err)
			}
			if np, ok := msg.NowPlaying(); ok {
				return nowPlayingMsg(np)
			}
		}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		sent, err := m.trigger.Request()
		return refreshedMsg(sent, err)
	}
}

func (m *Model) fetchHistory() tea.Cmd {
	return func() tea.Msg {
		plays, err := m.history(historyLimit)
		return historyFetchedMsg(plays, err)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}
