package host

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/nerrad567/devicekit/internal/device"
)

// InternetConnectionStatus picks the best up, non-loopback interface with
// an address: wired over Wi-Fi over cellular.
func (p *Provider) InternetConnectionStatus(ctx context.Context) (device.NetworkStatus, error) {
	ifaces, err := p.interfaces(ctx)
	if err != nil {
		return device.NetworkNone, fmt.Errorf("listing interfaces: %w", err)
	}

	best := device.NetworkNone
	rank := map[device.NetworkStatus]int{
		device.NetworkNone:     0,
		device.NetworkCellular: 1,
		device.NetworkWiFi:     2,
		device.NetworkWired:    3,
	}
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") || len(iface.Addrs) == 0 {
			continue
		}
		status := classifyInterface(iface.Name)
		if rank[status] > rank[best] {
			best = status
		}
	}
	return best, nil
}

func classifyInterface(name string) device.NetworkStatus {
	switch {
	case strings.HasPrefix(name, "wl"):
		return device.NetworkWiFi
	case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "rmnet"), strings.HasPrefix(name, "wwan"):
		return device.NetworkCellular
	case strings.HasPrefix(name, "docker"), strings.HasPrefix(name, "veth"), strings.HasPrefix(name, "br-"):
		return device.NetworkNone
	default:
		return device.NetworkWired
	}
}

// Enabled reports whether any bluetooth controller is registered.
func (p *Provider) Enabled(_ context.Context) (bool, error) {
	entries, err := fs.ReadDir(p.fsys, "sys/class/bluetooth")
	if err != nil {
		return false, nil
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "hci") {
			return true, nil
		}
	}
	return false, nil
}

// Available reports whether ALSA exposes a capture PCM.
func (p *Provider) Available(_ context.Context) (bool, error) {
	matches, err := fs.Glob(p.fsys, "proc/asound/card*/pcm*c")
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
