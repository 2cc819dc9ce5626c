package host

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const dmiDir = "sys/class/dmi/id/"

// DeviceInfo prefers DMI strings and falls back to gopsutil host info.
func (p *Provider) DeviceInfo(ctx context.Context) (deviceinfo.Identity, error) {
	var id deviceinfo.Identity
	id.Name, _ = p.readString(dmiDir + "product_name")
	id.Manufacturer, _ = p.readString(dmiDir + "sys_vendor")
	id.HardwareVersion, _ = p.readString(dmiDir + "product_version")
	id.FirmwareVersion, _ = p.readString(dmiDir + "bios_version")

	if id.Name != "" && id.FirmwareVersion != "" {
		return id, nil
	}

	info, err := p.hostInfo(ctx)
	if err != nil {
		if id.Name != "" {
			return id, nil
		}
		return id, fmt.Errorf("reading host info: %w", err)
	}
	if id.Name == "" {
		id.Name = info.Hostname
	}
	if id.FirmwareVersion == "" {
		id.FirmwareVersion = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}
	if id.HardwareVersion == "" {
		id.HardwareVersion = info.KernelArch
	}
	return id, nil
}

// DeviceID reads /etc/machine-id. A permission error is reported as
// deviceinfo.ErrAccessDenied; a missing file falls back to the gopsutil
// host id.
func (p *Provider) DeviceID(ctx context.Context) (string, error) {
	id, err := p.readString("etc/machine-id")
	switch {
	case err == nil && id != "":
		return id, nil
	case errors.Is(err, deviceinfo.ErrAccessDenied):
		return "", err
	}

	info, herr := p.hostInfo(ctx)
	if herr != nil {
		return "", fmt.Errorf("reading host id: %w", herr)
	}
	if info.HostID == "" {
		return "", deviceinfo.ErrUnsupported
	}
	return info.HostID, nil
}
