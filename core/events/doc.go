// Package events defines the search events emitted on the event bus.
//
// Available event types:
//   - RunStarted: a search run begins from an initial timetable
//   - MoveAccepted: an iteration applied a move
//   - SearchExhausted: an iteration found no legal move
package events
