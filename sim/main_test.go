package sim

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

// Runs log every flush and overshoot at debug level. HPATH_TEST_LOG=debug
// turns them back on.
func TestMain(m *testing.M) {
	level := logrus.ErrorLevel
	if v := os.Getenv("HPATH_TEST_LOG"); v != "" {
		if l, err := logrus.ParseLevel(v); err == nil {
			level = l
		}
	}
	logrus.SetLevel(level)
	os.Exit(m.Run())
}
