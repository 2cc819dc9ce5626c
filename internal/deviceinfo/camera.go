package deviceinfo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// autoFocusModels are device model codes whose back camera has auto-focus
// that the camera API does not report.
var autoFocusModels = []string{
	"RM-820", "RM-821", "RM-822", "RM-824", "RM-825", "RM-826",
	"RM-846", "RM-867", "RM-875", "RM-876", "RM-877", "RM-885",
	"RM-887", "RM-892", "RM-893", "RM-910", "RM-955",
}

// knownAutoFocusModel reports whether deviceName contains a listed model code.
func knownAutoFocusModel(deviceName string) bool {
	for _, model := range autoFocusModels {
		if strings.Contains(deviceName, model) {
			return true
		}
	}
	return false
}

// runCamera resets both facings, then opens the first back and first
// front camera. A facing whose camera fails to open keeps its defaults.
func runCamera(ctx context.Context, env *Env) error {
	env.Writer.ResetCameras()

	src, ok := env.Platform.(CameraSource)
	if !ok {
		return ErrUnsupported
	}
	cams, err := src.Cameras(ctx)
	if err != nil {
		return fmt.Errorf("enumerating cameras: %w", err)
	}

	var (
		result Cameras
		seen   = make(map[Facing]bool)
		errs   []error
	)
	for _, cam := range cams {
		if cam.Facing != FacingBack && cam.Facing != FacingFront {
			continue
		}
		if seen[cam.Facing] {
			continue
		}
		seen[cam.Facing] = true

		facing, err := inspectCamera(ctx, src, cam)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s camera %s: %w", cam.Facing, cam.ID, err))
			continue
		}
		if cam.Facing == FacingBack {
			result.Back = facing
		} else {
			result.Front = facing
		}
	}

	if result.Back.Present && !result.Back.AutoFocus && knownAutoFocusModel(env.Properties().Identity.Name) {
		result.Back.AutoFocus = true
	}

	env.Writer.SetCameras(result)
	return errors.Join(errs...)
}

func inspectCamera(ctx context.Context, src CameraSource, cam CameraInfo) (facing CameraFacing, err error) {
	session, err := src.OpenCamera(ctx, cam.ID)
	if err != nil {
		return CameraFacing{}, fmt.Errorf("opening: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing: %w", cerr)
		}
	}()

	photo, err := session.Resolutions(StreamPhoto)
	if err != nil {
		return CameraFacing{}, fmt.Errorf("photo resolutions: %w", err)
	}
	video, err := session.Resolutions(StreamVideo)
	if err != nil {
		return CameraFacing{}, fmt.Errorf("video resolutions: %w", err)
	}

	return CameraFacing{
		Present:          true,
		Flash:            session.HasFlash(),
		AutoFocus:        session.HasAutoFocus(),
		PhotoResolutions: SortResolutions(photo),
		VideoResolutions: SortResolutions(video),
	}, nil
}
