package schedule_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the pass-based worker pool leaves no goroutines
// running after Run returns, in any test in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
