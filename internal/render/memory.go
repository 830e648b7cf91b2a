package render

import (
	"sync"

	"github.com/roach88/postcache/internal/record"
)

// Memory is a display surface with an error region and a data region,
// kept in memory. Showing one region clears the other. Safe for
// concurrent use.
type Memory struct {
	mu      sync.Mutex
	errCode string
	errText string
	items   []string
	text    string
	renders int
}

// NewMemory returns an empty surface.
func NewMemory() *Memory {
	return &Memory{}
}

// Reset clears both regions.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errCode, m.errText = "", ""
	m.items, m.text = nil, ""
}

// ShowRecords renders the records as list items in the data region.
func (m *Memory) ShowRecords(records []record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errCode, m.errText = "", ""
	m.items, m.text = Lines(records), ""
	m.renders++
}

// ShowPlaceholder puts a plain message in the data region.
func (m *Memory) ShowPlaceholder(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errCode, m.errText = "", ""
	m.items, m.text = nil, text
	m.renders++
}

// ShowError puts a message in the error region and clears the data region.
func (m *Memory) ShowError(code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errCode, m.errText = code, message
	m.items, m.text = nil, ""
}

// Items returns the rendered list items.
func (m *Memory) Items() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.items...)
}

// Text returns the plain data region text (the placeholder, if shown).
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Error returns the error region code and message; empty when hidden.
func (m *Memory) Error() (code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errCode, m.errText
}

// Renders counts how many times the data region was drawn.
func (m *Memory) Renders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renders
}
