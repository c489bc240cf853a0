package kernel

import "errors"

// User-visible failures. These are returned, never panicked — callers are
// expected to check them (§7 of the scheduler spec: "user-visible" errors).
var (
	ErrNoFreeProc    = errors.New("kernel: process table exhausted")
	ErrNoSuchProcess = errors.New("kernel: no process with that pid")
	ErrBadOutPtr     = errors.New("kernel: invalid wait out-pointer")
)

// fatal panics with a stable identifier. Used exclusively for invariant
// violations (§7): conditions that indicate a kernel bug and cannot be
// locally repaired, as opposed to ordinary resource exhaustion.
func fatal(reason string) {
	panic("kernel: fatal: " + reason)
}
