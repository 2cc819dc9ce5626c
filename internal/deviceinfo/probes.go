package deviceinfo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
)

func runIdentity(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(IdentitySource)
	if !ok {
		env.Writer.SetDeviceIDStatus(IDUnavailable)
		return ErrUnsupported
	}

	var errs []error
	info, err := src.DeviceInfo(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("device info: %w", err))
	} else {
		env.Writer.SetIdentity(info)
	}

	id, err := src.DeviceID(ctx)
	switch {
	case err == nil && id != "":
		env.Writer.SetDeviceID(id)
	case err == nil:
		env.Writer.SetDeviceIDStatus(IDUnavailable)
	case errors.Is(err, ErrAccessDenied):
		env.Writer.SetDeviceIDStatus(IDDenied)
		errs = append(errs, fmt.Errorf("device id: %w", err))
	default:
		env.Writer.SetDeviceIDStatus(IDUnavailable)
		errs = append(errs, fmt.Errorf("device id: %w", err))
	}
	return errors.Join(errs...)
}

func runMemory(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(MemorySource)
	if !ok {
		env.Writer.SetMemory(MemoryStatus{})
		return ErrUnsupported
	}
	m, err := src.MemoryStatus(ctx)
	if err != nil {
		env.Writer.SetMemory(MemoryStatus{})
		return err
	}
	env.Writer.SetMemory(m)
	return nil
}

func runPower(ctx context.Context, env *Env) error {
	unknown := PowerInfo{ChargePercent: UnknownCharge}

	src, ok := env.Platform.(PowerSource)
	if !ok {
		env.Writer.SetPower(unknown)
		return ErrUnsupported
	}
	st, err := src.PowerStatus(ctx)
	if err != nil {
		env.Writer.SetPower(unknown)
		return err
	}

	info := PowerInfo{
		ChargePercent:  st.ChargePercent,
		HasBatteryInfo: st.ChargePercent >= 0,
		ExternalPower:  st.ExternalPower,
		PowerSaving:    st.PowerSaving,
	}
	if info.HasBatteryInfo {
		info.ChargePercent = min(info.ChargePercent, 100)
	} else {
		info.ChargePercent = UnknownCharge
	}
	env.Writer.SetPower(info)
	return nil
}

func runProcessor(ctx context.Context, env *Env) error {
	if src, ok := env.Platform.(ProcessorSource); ok {
		n, err := src.ProcessorCount(ctx)
		if err == nil && n > 0 {
			env.Writer.SetProcessorCount(n)
			return nil
		}
		if err != nil {
			env.Logger.Debug("processor count unavailable, using runtime", "error", err)
		}
	}
	env.Writer.SetProcessorCount(runtime.NumCPU())
	return nil
}

// runSensors checks each sensor kind on its own so one failing driver
// does not hide the others.
func runSensors(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(SensorSource)
	if !ok {
		env.Writer.SetSensors(Sensors{})
		return ErrUnsupported
	}

	var (
		sensors Sensors
		errs    []error
	)
	for _, kind := range AllSensors {
		present, err := checkSensor(ctx, src, kind)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			}
			continue
		}
		sensors.set(kind, present)
	}
	env.Writer.SetSensors(sensors)
	return errors.Join(errs...)
}

func checkSensor(ctx context.Context, src SensorSource, kind SensorKind) (present bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			present, err = false, fmt.Errorf("sensor check panicked: %v", r)
		}
	}()
	return src.HasSensor(ctx, kind)
}

func runVibration(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(VibrationSource)
	if !ok {
		env.Writer.SetVibration(false)
		return ErrUnsupported
	}
	present, err := src.HasVibrator(ctx)
	if err != nil {
		env.Writer.SetVibration(false)
		return err
	}
	env.Writer.SetVibration(present)
	return nil
}

func runSDCard(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(StorageSource)
	if !ok {
		env.Writer.SetSDCard(false)
		return ErrUnsupported
	}
	mounts, err := src.RemovableStorage(ctx)
	if err != nil {
		env.Writer.SetSDCard(false)
		return err
	}
	env.Writer.SetSDCard(len(mounts) > 0)
	return nil
}

func runScreen(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(DisplaySource)
	if !ok {
		env.Writer.SetScreen(Screen{Resolution: ResolutionUnknown})
		return ErrUnsupported
	}
	m, err := src.DisplayMetrics(ctx)
	if err != nil {
		env.Writer.SetScreen(Screen{Resolution: ResolutionUnknown})
		return err
	}
	env.Writer.SetScreen(screenFromMetrics(m))
	return nil
}

// screenFromMetrics derives portrait pixel size, class and diagonal.
func screenFromMetrics(m DisplayMetrics) Screen {
	w, h := m.Width, m.Height
	if w > h {
		w, h = h, w
	}
	size := Size{Width: int(math.Round(w)), Height: int(math.Round(h))}
	return Screen{
		Resolution:     ClassifyResolution(w, h),
		Size:           size,
		DiagonalInches: DiagonalInches(size, m.RawDPIX, m.RawDPIY),
		Display:        m,
	}
}

func runTheme(ctx context.Context, env *Env) error {
	src, ok := env.Platform.(ThemeSource)
	if !ok {
		env.Writer.SetTheme(Theme{})
		return ErrUnsupported
	}
	t, err := src.Theme(ctx)
	switch {
	case err == nil:
		env.Writer.SetTheme(t)
		return nil
	case errors.Is(err, ErrResourceMissing):
		// Accent stays at its previous value; the app theme still resolved.
		if t.AppTheme != ThemeUnknown {
			env.Writer.SetAppTheme(t.AppTheme)
		}
		env.Logger.Debug("theme accent resource missing, keeping default")
		return nil
	default:
		env.Writer.SetTheme(Theme{})
		return err
	}
}
