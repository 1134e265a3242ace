// Package tasks consumes relayed now playing snapshots.
//
// # Subscribers
//
// [Consume] drives a [Subscriber] from a bus inbox. Two subscribers are provided:
//
//  1. [Recorder] : stores a play in the history database when a new track starts
//     - Primes itself from the latest stored play so restarts do not duplicate it
//     - Skips paused snapshots
//
//  2. [Printer] : writes a status line when the track changes, pauses or resumes
//
// # Changes
//
// [Diff] classifies consecutive snapshots into a [Change]; the [Printer] uses it to ignore progress-only updates.
package tasks
