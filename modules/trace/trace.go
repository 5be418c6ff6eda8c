package trace

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Debuger emits verbose progress messages, gated on a verbose flag set at
// construction time.
type Debuger interface {
	DbgPrint(format string, args ...any)
}

func NewDebuger(verbose bool) Debuger {
	return &debuger{verbose: verbose}
}

type debuger struct {
	verbose bool
}

// DbgPrint writes message, one logrus.Debug call per line, regardless of
// verbose: callers that want gating should go through a Debuger instead.
func DbgPrint(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	for _, s := range strings.Split(message, "\n") {
		logrus.Debug(s)
	}
}

func (d debuger) DbgPrint(format string, args ...any) {
	if !d.verbose {
		return
	}
	DbgPrint(format, args...)
}

var (
	_ Debuger = &debuger{}
)
