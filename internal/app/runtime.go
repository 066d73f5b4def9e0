package app

import (
	"os"
	"sync"
)

// testModeEnv short-circuits the command mains so test binaries that link
// them never boot servers or dial infrastructure.
const testModeEnv = "OPENLEAGUE_TEST_MODE"

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether runtime side effects should be skipped.
func InTestMode() bool {
	return inTestMode()
}
