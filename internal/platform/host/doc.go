// Package host implements deviceinfo.Platform for the machine the process
// runs on.
//
// Counters come from gopsutil; everything gopsutil does not cover (power
// supplies, DMI identity, IIO sensors, DRM connectors, removable block
// devices) is read from sysfs and procfs through an fs.FS rooted at "/",
// so tests substitute an in-memory tree.
//
// The provider does not implement deviceinfo.CameraSource: V4L2 exposes
// capture formats only through ioctls.
package host
