package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nowplaying/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgNowPlaying MsgKind = iota
	MsgInboxClosed
	MsgHistoryFetched
	MsgTick
	MsgRefreshed
)

// nowPlayingMsg is the constructor for [MsgNowPlaying]
func nowPlayingMsg(np models.NowPlaying) Msg {
	return Msg{kind: MsgNowPlaying, data: np}
}

// inboxClosedMsg is the constructor for [MsgInboxClosed]
func inboxClosedMsg(err error) Msg {
	return Msg{kind: MsgInboxClosed, data: err}
}

// historyFetchedMsg is the constructor for [MsgHistoryFetched]
func historyFetchedMsg(plays []*models.Play, err error) Msg {
	return Msg{
		kind: MsgHistoryFetched,
		data: struct {
			plays []*models.Play
			err   error
		}{plays, err},
	}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}

// refreshedMsg is the constructor for [MsgRefreshed]
func refreshedMsg(sent bool, err error) Msg {
	return Msg{
		kind: MsgRefreshed,
		data: struct {
			sent bool
			err  error
		}{sent, err},
	}
}
