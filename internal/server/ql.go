package server

import (
	"context"

	fctx "github.com/ryogrid/ftsengine/internal/context"
)

// EchoQL is a minimal QueryExecutor standing in for the embedded query
// language interpreter spec.md §1 places out of scope ("only their
// contracts matter"): it writes the request body back unchanged through
// the context's buffer, enough to exercise GQTP framing end to end
// without a real QL grammar.
type EchoQL struct{}

func (EchoQL) Execute(_ context.Context, fc *fctx.Context, body []byte, _ byte) ([]byte, error) {
	fc.Buffer().Clear()
	fc.Buffer().Append(body)
	out := append([]byte(nil), fc.Buffer().AsSlice()...)
	fc.Buffer().Clear()
	return out, nil
}
