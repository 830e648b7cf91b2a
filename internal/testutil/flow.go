package testutil

// FixedFlowGenerator generates the same flow token every time.
//
// Load attaches its flow token to every log line it emits; a fixed token
// makes captured logs comparable across runs.
//
// Thread-safety: FixedFlowGenerator is stateless and safe for concurrent use.
type FixedFlowGenerator struct {
	token string
}

// NewFixedFlowGenerator creates a new fixed flow token generator.
// If token is empty, Generate() returns "test-flow-default".
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return &FixedFlowGenerator{token: token}
}

// Generate returns the fixed flow token.
//
// Implements app.FlowTokenGenerator.
func (g *FixedFlowGenerator) Generate() string {
	return g.token
}
