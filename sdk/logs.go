package sdk

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

// logRingSize bounds the in-memory log buffer exposed to host apps.
const logRingSize = 500

// logRing keeps the most recent SDK log lines so a host app can surface
// them in a debug screen without wiring up file logging.
type logRing struct {
	mu    sync.Mutex
	lines []string
}

var sdkLogs = &logRing{}

func (r *logRing) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if len(r.lines) > logRingSize {
		r.lines = r.lines[len(r.lines)-logRingSize:]
	}
}

func (r *logRing) dump() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "\n")
}

// logLine records a line in the ring and the leveled logger.
func logLine(line string) {
	sdkLogs.add(fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), line))
	logger.Debugf("sdk: %s", line)
}

// logPanic records a recovered panic with its stack.
func logPanic(op string, recovered any) {
	logLine(fmt.Sprintf("panic in %s: %v\n%s", op, recovered, debug.Stack()))
	logger.Errorf("panic in %s: %v", op, recovered)
}

// Logs returns the most recent SDK log lines, oldest first.
func (c *Client) Logs() string {
	return sdkLogs.dump()
}
