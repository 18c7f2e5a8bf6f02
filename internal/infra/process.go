package infra

import (
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

// ProcessProbeImpl implements domain.ProcessProbe using gopsutil.
type ProcessProbeImpl struct{}

// NewProcessProbe creates a new process probe.
func NewProcessProbe() domain.ProcessProbe {
	return &ProcessProbeImpl{}
}

// IsRunning checks if a PID exists and is running.
func (p *ProcessProbeImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}

	// PID may be recycled or zombied; verify the process answers signal 0.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// CurrentPID returns the current process PID.
func (p *ProcessProbeImpl) CurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessProbeImpl implements domain.ProcessProbe.
var _ domain.ProcessProbe = (*ProcessProbeImpl)(nil)
