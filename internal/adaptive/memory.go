package adaptive

import (
	"os"
	"runtime"

	"github.com/prometheus/procfs"
)

// MemorySampler reports the process's resident set size in bytes.
type MemorySampler interface {
	ResidentBytes() (uint64, error)
}

// ProcSampler reads RSS from /proc via the procfs library, falling back to
// the Go heap accounting when /proc is unavailable (non-Linux, containers
// without procfs).
type ProcSampler struct {
	proc *procfs.Proc
}

// NewProcSampler probes /proc once; the fallback path is chosen at
// construction, not per sample.
func NewProcSampler() *ProcSampler {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return &ProcSampler{}
	}
	proc, err := fs.Proc(os.Getpid())
	if err != nil {
		return &ProcSampler{}
	}
	return &ProcSampler{proc: &proc}
}

// ResidentBytes implements MemorySampler.
func (s *ProcSampler) ResidentBytes() (uint64, error) {
	if s.proc != nil {
		stat, err := s.proc.Stat()
		if err == nil {
			return uint64(stat.ResidentMemory()), nil
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys, nil
}

// TotalMemoryBytes reads total system memory from /proc/meminfo; zero when
// unavailable so callers fall back to the fixed budget ceiling.
func TotalMemoryBytes() uint64 {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0
	}
	info, err := fs.Meminfo()
	if err != nil || info.MemTotal == nil {
		return 0
	}
	return *info.MemTotal * 1024
}
