// Package app wires the remote provider, the store and a display surface
// into the two user actions: load fresh data and view stored data.
//
// # Load
//
// Load fetches records, renders them immediately and persists them in the
// background. Rendering never waits for the store; a failed write is
// logged and reported by Wait, never shown on the display.
//
//	IDLE -> FETCHING -> POPULATED
//	                 -> FAILED
//
// # View Stored
//
// ViewStored reads the whole collection and renders it, or the placeholder
// when the collection is empty. It is independent of the load state.
//
// # Known Limitation
//
// Overlapping Load calls are not serialized or cancelled. Each renders its
// own response when it arrives, so the last response wins on the display,
// and their writes interleave with the later commit winning per id.
package app
