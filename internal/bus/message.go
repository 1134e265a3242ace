package bus

import (
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// Kind is the topic tag of a [Message].
type Kind int

const (
	// KindCurrentlyPlayingRequest asks the relay to read the player state.
	KindCurrentlyPlayingRequest Kind = iota
	// KindCurrentlyPlaying carries a validated [models.NowPlaying].
	KindCurrentlyPlaying
)

func (k Kind) String() string {
	switch k {
	case KindCurrentlyPlayingRequest:
		return "currently-playing-request"
	case KindCurrentlyPlaying:
		return "currently-playing"
	default:
		return "unknown"
	}
}

// Message is an immutable tagged payload.
type Message struct {
	id   string
	kind Kind
	data any
}

// NewMessage builds a message of the given kind. Prefer the typed constructors.
func NewMessage(kind Kind, data any) Message {
	return Message{id: shared.GenerateID(), kind: kind, data: data}
}

// CurrentlyPlayingRequest is the constructor for [KindCurrentlyPlayingRequest]
func CurrentlyPlayingRequest() Message {
	return NewMessage(KindCurrentlyPlayingRequest, nil)
}

// CurrentlyPlaying is the constructor for [KindCurrentlyPlaying]
func CurrentlyPlaying(np models.NowPlaying) Message {
	return NewMessage(KindCurrentlyPlaying, np)
}

func (m Message) ID() string { return m.id }
func (m Message) Kind() Kind { return m.kind }
func (m Message) Data() any  { return m.data }

// NowPlaying returns the payload of a [KindCurrentlyPlaying] message.
func (m Message) NowPlaying() (models.NowPlaying, bool) {
	if m.kind != KindCurrentlyPlaying {
		return models.NowPlaying{}, false
	}
	np, ok := m.data.(models.NowPlaying)
	return np, ok
}
