package host

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// RemovableStorage lists mount points whose block device is flagged
// removable in sysfs.
func (p *Provider) RemovableStorage(ctx context.Context) ([]string, error) {
	parts, err := p.partitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}

	var mounts []string
	for _, part := range parts {
		dev := blockDevice(part.Device)
		if dev == "" {
			continue
		}
		removable, err := p.readString(path.Join("sys/block", dev, "removable"))
		if err != nil {
			if errors.Is(err, deviceinfo.ErrAccessDenied) {
				return nil, err
			}
			continue
		}
		if removable == "1" {
			mounts = append(mounts, part.Mountpoint)
		}
	}
	return mounts, nil
}

// blockDevice maps /dev/sdb1 to sdb and /dev/mmcblk0p1 to mmcblk0.
func blockDevice(device string) string {
	name, ok := strings.CutPrefix(device, "/dev/")
	if !ok {
		return ""
	}
	if strings.HasPrefix(name, "mmcblk") || strings.HasPrefix(name, "nvme") {
		if i := strings.LastIndex(name, "p"); i > 0 && i < len(name)-1 && isDigits(name[i+1:]) {
			return name[:i]
		}
		return name
	}
	return strings.TrimRight(name, "0123456789")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
