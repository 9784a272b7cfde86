// Package alert shows transient OS-level notifications.
package alert

import (
	"context"
	"os"
	"runtime"

	"github.com/gen2brain/beeep"
)

// Permission is the user's decision about OS alerts.
type Permission int

const (
	PermissionDefault Permission = iota // not decided yet
	PermissionGranted
	PermissionDenied
)

// String returns a human-readable label for the permission.
func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "default"
	}
}

// Surface is an OS alert facility.
type Surface interface {
	// RequestPermission asks for permission to show alerts.
	RequestPermission(ctx context.Context) (Permission, error)

	// Notify shows one transient alert.
	Notify(title, body string) error
}

// Desktop shows alerts through the desktop notification service.
type Desktop struct{}

// NewDesktop returns a Desktop surface.
func NewDesktop() *Desktop {
	return &Desktop{}
}

// RequestPermission grants alerts whenever a desktop session is reachable.
// Desktop notification services have no permission prompt.
func (d *Desktop) RequestPermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDefault, err
	}
	if !hasDesktopSession() {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// Notify sends the alert to the desktop notification service.
func (d *Desktop) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}

func hasDesktopSession() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "netbsd", "openbsd":
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	default:
		return true
	}
}

// Nop is the surface of environments without OS alerts. Permission stays
// at its default and every alert is silently discarded.
type Nop struct{}

func (Nop) RequestPermission(context.Context) (Permission, error) { return PermissionDefault, nil }

func (Nop) Notify(string, string) error { return nil }
