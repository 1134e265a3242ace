package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/models"
)

type fakeTrigger struct {
	sent  bool
	err   error
	calls int
}

func (f *fakeTrigger) Request() (bool, error) {
	f.calls++
	return f.sent, f.err
}

var fetched = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func snapshot() models.NowPlaying {
	return models.NowPlaying{
		Track: models.Track{
			ID:         "t1",
			Title:      "Harder, Better, Faster, Stronger",
			Artists:    []string{"Daft Punk"},
			Album:      "Discovery",
			DurationMS: 224000,
		},
		IsPlaying:  true,
		ProgressMS: 60000,
		FetchedAt:  fetched,
	}
}

func newTestModel(t *testing.T, trigger Requester, history HistorySource) (*Model, *bus.Bus) {
	t.Helper()
	b := bus.New(bus.WithLogger(log.New(io.Discard)))
	t.Cleanup(func() { b.Close() })

	in, err := b.Subscribe(bus.KindCurrentlyPlaying)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m := NewModel(context.Background(), in, trigger, history)
	m.now = func() time.Time { return fetched.Add(5 * time.Second) }
	return m, b
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel(t *testing.T) {
	t.Run("Waiting Before First Snapshot", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		if !strings.Contains(m.View(), "Waiting for the player") {
			t.Errorf("expected waiting view, got %q", m.View())
		}
	})

	t.Run("Renders Snapshot With Interpolated Progress", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		m.Update(nowPlayingMsg(snapshot()))

		view := m.View()
		for _, want := range []string{"Harder, Better, Faster, Stronger", "Daft Punk • Discovery", "1:05 / 3:44", "playing"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Paused Snapshot Is Not Advanced", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		np := snapshot()
		np.IsPlaying = false
		m.Update(nowPlayingMsg(np))

		if got := m.current().ProgressMS; got != 60000 {
			t.Errorf("expected progress to stay at 60000, got %d", got)
		}
		if !strings.Contains(m.View(), "paused") {
			t.Error("expected paused state in view")
		}
	})

	t.Run("Progress Is Capped At Duration", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		m.now = func() time.Time { return fetched.Add(time.Hour) }
		m.Update(nowPlayingMsg(snapshot()))

		if got := m.current().ProgressMS; got != 224000 {
			t.Errorf("expected progress capped at duration, got %d", got)
		}
	})

	t.Run("Reads Snapshots From Inbox", func(t *testing.T) {
		m, b := newTestModel(t, nil, nil)
		b.Publish(bus.CurrentlyPlaying(snapshot()))

		msg := m.waitForNowPlaying()()
		got, ok := msg.(Msg)
		if !ok || got.kind != MsgNowPlaying {
			t.Fatalf("expected now playing message, got %#v", msg)
		}
	})

	t.Run("Quits When Bus Closes", func(t *testing.T) {
		m, b := newTestModel(t, nil, nil)
		b.Close()

		msg := m.waitForNowPlaying()()
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if !errors.Is(m.Err(), bus.ErrBusClosed) {
			t.Errorf("expected ErrBusClosed, got %v", m.Err())
		}
	})

	t.Run("Cancelled Context Quits Cleanly", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		m.Update(inboxClosedMsg(context.Canceled))
		if m.Err() != nil {
			t.Errorf("expected no error on cancel, got %v", m.Err())
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		trigger := &fakeTrigger{sent: true}
		m, _ := newTestModel(t, trigger, nil)

		_, cmd := m.Update(runeKey('r'))
		if cmd == nil {
			t.Fatal("expected refresh command")
		}
		m.Update(cmd())

		if trigger.calls != 1 {
			t.Errorf("expected 1 request, got %d", trigger.calls)
		}
		if !strings.Contains(m.View(), "refresh requested") {
			t.Errorf("expected refresh status, got %q", m.View())
		}

		trigger.sent = false
		_, cmd = m.Update(runeKey('r'))
		m.Update(cmd())
		if !strings.Contains(m.View(), "throttled") {
			t.Errorf("expected throttled status, got %q", m.View())
		}
	})

	t.Run("Refresh Disabled Without Trigger", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		if _, cmd := m.Update(runeKey('r')); cmd != nil {
			t.Error("expected no command without a trigger")
		}
	})

	t.Run("History", func(t *testing.T) {
		play := models.NewPlay(1, snapshot().Track, fetched)
		var limit int
		history := func(n int) ([]*models.Play, error) {
			limit = n
			return []*models.Play{play}, nil
		}

		m, _ := newTestModel(t, nil, history)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

		_, cmd := m.Update(runeKey('h'))
		if m.view != HistoryView {
			t.Fatalf("expected history view, got %v", m.view)
		}
		m.Update(cmd())

		if limit != historyLimit {
			t.Errorf("expected limit %d, got %d", historyLimit, limit)
		}
		if !strings.Contains(m.View(), "Harder, Better, Faster, Stronger") {
			t.Errorf("expected play in history view:\n%s", m.View())
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != NowPlayingView {
			t.Errorf("expected esc to return to now playing, got %v", m.view)
		}
	})

	t.Run("History Error", func(t *testing.T) {
		history := func(int) ([]*models.Play, error) { return nil, errors.New("database locked") }
		m, _ := newTestModel(t, nil, history)

		_, cmd := m.Update(runeKey('h'))
		m.Update(cmd())

		if m.view != NowPlayingView {
			t.Errorf("expected fallback to now playing view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "database locked") {
			t.Errorf("expected error status, got %q", m.View())
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m, _ := newTestModel(t, nil, nil)
		_, cmd := m.Update(runeKey('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
