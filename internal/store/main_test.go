package store

import (
	"testing"

	"go.uber.org/goleak"
)

// genai's dependency chain starts the opencensus view worker in init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
