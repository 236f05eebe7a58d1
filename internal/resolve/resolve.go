// Package resolve maps cleaned order text onto catalog entries and
// packaging choices using the catalog index and the hybrid scorer.
package resolve

import (
	"context"

	"voiceorder/internal/embedding"
)

// Outcome tags the result of a resolution.
type Outcome int

const (
	// Resolved means a candidate cleared the acceptance threshold.
	Resolved Outcome = iota
	// NotFound means the backend answered but nothing matched well enough.
	NotFound
	// BackendError means the index or the embedder failed.
	BackendError
)

// Unresolved is the packaging name for NotFound.
const Unresolved = NotFound

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	case BackendError:
		return "backend_error"
	default:
		return "unknown"
	}
}

// Embedder produces query vectors. *embedding.Cache satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var _ Embedder = (*embedding.Cache)(nil)
