// Package models defines domain entities and persistence interfaces for the now playing relay.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs carried over the message bus
//   - [Track] : Song metadata reported by the player
//   - [NowPlaying] : Player state snapshot with progress and fetch time
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Play] : A track observed starting to play, stored for history
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
