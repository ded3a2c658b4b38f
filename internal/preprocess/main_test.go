package preprocess_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the preprocessor's errgroup-based fan-out leaves no
// goroutines running after Run returns.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
