package host

import (
	"context"
	"io/fs"
	"path"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const powerSupplyDir = "sys/class/power_supply"

// PowerStatus reads batteries and line power from the power_supply class.
// With no supplies at all it returns ErrUnsupported; with line power but
// no battery the charge is UnknownCharge.
func (p *Provider) PowerStatus(_ context.Context) (deviceinfo.PowerStatus, error) {
	entries, err := fs.ReadDir(p.fsys, powerSupplyDir)
	if err != nil || len(entries) == 0 {
		return deviceinfo.PowerStatus{}, deviceinfo.ErrUnsupported
	}

	st := deviceinfo.PowerStatus{ChargePercent: deviceinfo.UnknownCharge}
	for _, e := range entries {
		dir := path.Join(powerSupplyDir, e.Name())
		kind, err := p.readString(path.Join(dir, "type"))
		if err != nil {
			continue
		}

		switch kind {
		case "Battery":
			if capacity, err := p.readInt(path.Join(dir, "capacity")); err == nil && st.ChargePercent == deviceinfo.UnknownCharge {
				st.ChargePercent = capacity
			}
			if status, err := p.readString(path.Join(dir, "status")); err == nil {
				if status == "Charging" || status == "Full" {
					st.ExternalPower = true
				}
			}
		case "Mains", "USB", "USB_C":
			if online, err := p.readInt(path.Join(dir, "online")); err == nil && online == 1 {
				st.ExternalPower = true
			}
		}
	}

	if profile, err := p.readString("sys/firmware/acpi/platform_profile"); err == nil {
		st.PowerSaving = profile == "low-power" || profile == "quiet"
	}
	return st, nil
}
