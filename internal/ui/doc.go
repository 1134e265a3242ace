// Package ui implements a live now playing terminal interface using bubbletea's Elm architecture.
//
// The TUI is a result subscriber of the message bus with two views:
//  1. [NowPlayingView] : The current track with a progress bar interpolated between relay updates
//  2. [HistoryView] : Recently recorded plays, when a history source is configured
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Snapshots flow from a [bus.Inbox] through a blocking command, so the bubbletea loop never blocks on the bus.
//
// Keyboard navigation uses vim-style bindings (j/k, r, h, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
