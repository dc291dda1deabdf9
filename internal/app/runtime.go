package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv is set by the shared test harness so binaries exit before
// dialing Postgres, Redis or SMTP.
const TestModeEnv = "LARKSPUR_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

// InTestMode reports whether the process should skip runtime side effects.
func InTestMode() bool {
	return testMode()
}

func parseTestMode(raw string) bool {
	enabled, err := strconv.ParseBool(raw)
	return err == nil && enabled
}
