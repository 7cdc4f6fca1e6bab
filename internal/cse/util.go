package cse

import "fmt"

// debugf formats a debug-level trace message. spec.md's error handling
// model (§7) calls for logging abandonment/skip decisions at debug level
// without failing the pass; this engine collects them as plain strings on
// the heuristic that produced them (e.g. Replay.Log) rather than writing to
// a process-wide logger, since CSE has no logging dependency of its own and
// a single compilation may run many engines concurrently (spec.md §5).
func debugf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
