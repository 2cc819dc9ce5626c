package host

import (
	"context"
	"io/fs"
	"path"
	"strings"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const iioDir = "sys/bus/iio/devices"

// iioChannels maps each sensor kind to the IIO channel prefix that
// identifies it.
var iioChannels = map[deviceinfo.SensorKind]string{
	deviceinfo.SensorAccelerometer: "in_accel_",
	deviceinfo.SensorGyroscope:     "in_anglvel_",
	deviceinfo.SensorCompass:       "in_magn_",
	deviceinfo.SensorInclinometer:  "in_incli_",
	deviceinfo.SensorOrientation:   "in_rot_",
	deviceinfo.SensorProximity:     "in_proximity",
}

// HasSensor scans IIO devices for a channel of the given kind.
func (p *Provider) HasSensor(_ context.Context, kind deviceinfo.SensorKind) (bool, error) {
	prefix, ok := iioChannels[kind]
	if !ok {
		return false, deviceinfo.ErrUnsupported
	}

	devices, err := fs.ReadDir(p.fsys, iioDir)
	if err != nil {
		// No IIO bus means no sensors, not an error.
		return false, nil
	}
	for _, dev := range devices {
		if !strings.HasPrefix(dev.Name(), "iio:device") {
			continue
		}
		channels, err := fs.ReadDir(p.fsys, path.Join(iioDir, dev.Name()))
		if err != nil {
			continue
		}
		for _, ch := range channels {
			if strings.HasPrefix(ch.Name(), prefix) {
				return true, nil
			}
		}
	}
	return false, nil
}

// HasVibrator reports a vibration motor exposed as an LED or timed output.
func (p *Provider) HasVibrator(_ context.Context) (bool, error) {
	return p.exists("sys/class/leds/vibrator") || p.exists("sys/class/timed_output/vibrator"), nil
}
