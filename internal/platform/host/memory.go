package host

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// MemoryStatus combines device total from gopsutil with process RSS,
// the VmHWM peak from procfs and the cgroup v2 memory limit.
func (p *Provider) MemoryStatus(ctx context.Context) (deviceinfo.MemoryStatus, error) {
	vm, err := p.virtualMemory(ctx)
	if err != nil {
		return deviceinfo.MemoryStatus{}, fmt.Errorf("reading virtual memory: %w", err)
	}
	st := deviceinfo.MemoryStatus{DeviceTotal: vm.Total}

	if info, err := p.processMemory(ctx, p.pid); err == nil {
		st.CurrentUsage = info.RSS
	}
	if peak, ok := p.peakRSS(); ok {
		st.PeakUsage = peak
	}
	if limit, err := p.readString("sys/fs/cgroup/memory.max"); err == nil && limit != "max" {
		if v, err := strconv.ParseUint(limit, 10, 64); err == nil {
			st.UsageLimit = v
		}
	}
	if st.UsageLimit == 0 {
		st.UsageLimit = vm.Total
	}
	return st, nil
}

// peakRSS parses VmHWM from /proc/self/status.
func (p *Provider) peakRSS() (uint64, bool) {
	data, err := fs.ReadFile(p.fsys, "proc/self/status")
	if err != nil {
		return 0, false
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "VmHWM:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "VmHWM:"))
		if len(fields) == 0 {
			return 0, false
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
