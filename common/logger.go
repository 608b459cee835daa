// this code is from https://github.com/ryogrid/SamehadaDB (common/logger.go)

package common

import "fmt"

// LogLevel is a bitmask so callers can enable several kinds of tracing at
// once without a dependency-heavy logging library.
type LogLevel int32

const (
	DebugDetail LogLevel = 1 << iota
	Debug
	Info
	Warn
	Error
)

// ActiveLogLevels controls which ShPrintf calls actually print. Left at
// zero (silent) by default; tests and callers may raise it.
var ActiveLogLevels LogLevel = 0

// ShPrintf prints fmtStr formatted with a, but only if level is enabled in
// ActiveLogLevels. This mirrors the teacher's own hand-rolled logger
// rather than pulling in a third-party logging package — see DESIGN.md's
// "Stdlib justifications" entry for why.
func ShPrintf(level LogLevel, fmtStr string, a ...interface{}) {
	if level&ActiveLogLevels != 0 {
		fmt.Printf(fmtStr, a...)
	}
}
