// Package guard flips the runtime into test mode. Test files that touch
// packages with boot side effects blank-import it:
//
//	_ "github.com/openleague/openleague/internal/testing/guard"
package guard

import "os"

func init() {
	if os.Getenv("OPENLEAGUE_TEST_MODE") == "" {
		_ = os.Setenv("OPENLEAGUE_TEST_MODE", "1")
	}
}
