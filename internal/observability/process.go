package observability

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessRSS возвращает resident set size текущего процесса в байтах
func ProcessRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mem.RSS, nil
}
