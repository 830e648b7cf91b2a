// Package record defines the unit of data cached by postcache.
//
// A Record is a decoded JSON object with a mandatory identity field, "id".
// The identity is either an integer or a string; the two kinds never
// compare equal, so 1 and "1" are distinct records.
//
// # Canonical Bodies
//
// Records are persisted as canonical JSON:
//   - Object keys sorted by UTF-16 code units
//   - No HTML escaping
//   - Strings NFC normalized
//   - Numbers written exactly as they were received
//
// Writing the same record twice therefore always produces the same bytes,
// which is what makes repeated upserts observably idempotent.
package record
