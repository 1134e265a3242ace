// Package relay turns "currently playing" requests on the message bus into validated player snapshots.
//
// A [Relay] subscribes to [bus.KindCurrentlyPlayingRequest], asks its [Player] for the playback state on
// every request, and publishes a [bus.CurrentlyPlaying] message when the state describes a track.
// Episodes, ads and empty responses are skipped. The loop survives player errors and ends when its
// context is cancelled or the bus closes.
//
// A [Trigger] produces the requests on a fixed interval.
package relay
