package socket

import (
	"strings"

	"github.com/mitchellh/go-ps"
)

var _ ProcessChecker = (*DefaultProcessChecker)(nil)

// ProcessChecker reports whether a process is running.
type ProcessChecker interface {
	IsRunning(name string) bool
}

// DefaultProcessChecker scans the process table with go-ps.
type DefaultProcessChecker struct{}

// IsRunning reports whether an executable whose name starts with name,
// case-insensitively, is running. Listing failures count as running so
// Dial keeps waiting until its deadline.
func (*DefaultProcessChecker) IsRunning(name string) bool {
	procs, err := ps.Processes()
	if err != nil {
		return true
	}
	for _, p := range procs {
		if exe := p.Executable(); len(exe) >= len(name) && strings.EqualFold(exe[:len(name)], name) {
			return true
		}
	}
	return false
}
