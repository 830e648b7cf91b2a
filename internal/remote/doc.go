// Package remote fetches records from the HTTP endpoint that feeds the cache.
//
// The response body must be a JSON array of objects. Before decoding, the
// body is checked against a CUE schema:
//
//	#Post: {
//		id:     int | string
//		title?: string
//		...
//	}
//	#Posts: [...#Post]
//
// Transport failures and non-2xx statuses are *FetchError; malformed JSON,
// schema violations and oversized bodies are *ParseError.
package remote
