package host

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	gohost "github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// Name is the platform name reported by the provider.
const Name = "host"

// Provider reads device capabilities from the local host.
type Provider struct {
	fsys fs.FS
	env  func(string) string
	pid  int32

	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	processMemory func(ctx context.Context, pid int32) (*process.MemoryInfoStat, error)
	cpuCounts     func(ctx context.Context, logical bool) (int, error)
	hostInfo      func(ctx context.Context) (*gohost.InfoStat, error)
	partitions    func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	interfaces    func(ctx context.Context) (net.InterfaceStatList, error)
}

// Options configures a Provider.
type Options struct {
	// Root is the filesystem root sysfs and procfs are read under.
	// Defaults to "/".
	Root string

	// FS overrides Root for tests.
	FS fs.FS
}

// New creates a host provider.
func New(opts Options) *Provider {
	fsys := opts.FS
	if fsys == nil {
		root := opts.Root
		if root == "" {
			root = "/"
		}
		fsys = os.DirFS(root)
	}
	return &Provider{
		fsys:          fsys,
		env:           os.Getenv,
		pid:           int32(os.Getpid()), //nolint:gosec // pids fit in int32
		virtualMemory: mem.VirtualMemoryWithContext,
		processMemory: readProcessMemory,
		cpuCounts:     cpu.CountsWithContext,
		hostInfo:      gohost.InfoWithContext,
		partitions:    disk.PartitionsWithContext,
		interfaces:    net.InterfacesWithContext,
	}
}

func readProcessMemory(ctx context.Context, pid int32) (*process.MemoryInfoStat, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	return p.MemoryInfoWithContext(ctx)
}

// Name returns "host".
func (p *Provider) Name() string {
	return Name
}

// ProcessorCount returns the logical CPU count.
func (p *Provider) ProcessorCount(ctx context.Context) (int, error) {
	return p.cpuCounts(ctx, true)
}

// readString reads a sysfs attribute and trims trailing whitespace.
func (p *Provider) readString(name string) (string, error) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return "", mapFSError(err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (p *Provider) readInt(name string) (int, error) {
	s, err := p.readString(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func (p *Provider) exists(name string) bool {
	_, err := fs.Stat(p.fsys, name)
	return err == nil
}

// mapFSError turns filesystem errors into capability errors.
func mapFSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return errors.Join(deviceinfo.ErrAccessDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(deviceinfo.ErrUnsupported, err)
	}
	return err
}
