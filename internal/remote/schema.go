package remote

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

const postSchema = `
#Post: {
	id:     (int & >=-9223372036854775808 & <=9223372036854775807) | string
	title?: string
	...
}

#Posts: [...#Post]
`

// Validator checks response bodies against the #Posts schema.
// A cue.Context is not safe for concurrent use, so checks are serialized.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the record schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(postSchema, cue.Filename("posts.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", formatCUEError(err))
	}
	schema := root.LookupPath(cue.ParsePath("#Posts"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Posts: %w", formatCUEError(err))
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate reports whether data is a JSON array of objects that each carry
// an integer or string id and, if present, a string title.
func (v *Validator) Validate(data []byte) error {
	expr, err := cuejson.Extract("response.json", data)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", formatCUEError(err))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	value := v.ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := v.schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first entry.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	if len(errs) > 1 {
		return fmt.Errorf("%v (and %d more)", errs[0], len(errs)-1)
	}
	return errs[0]
}
