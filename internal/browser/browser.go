package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start executes a command and starts it
func (RealCommander) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Start()
}

var defaultCommander Commander = RealCommander{}

// KioskBrowser is the browser launched for full-screen kiosk mode on linux
var KioskBrowser = "chromium"

// Open opens the URL in the default browser
func Open(url string) error {
	return OpenWithCommander(url, defaultCommander, runtime.GOOS, false)
}

// OpenKiosk opens the URL full screen without browser chrome, the way the
// customer-facing shell runs on the kiosk
func OpenKiosk(url string) error {
	return OpenWithCommander(url, defaultCommander, runtime.GOOS, true)
}

// OpenWithCommander opens the URL using the specified commander and OS (for testing)
func OpenWithCommander(url string, commander Commander, goos string, kiosk bool) error {
	name, args, err := command(url, goos, kiosk)
	if err != nil {
		return err
	}
	return commander.Start(name, args...)
}

func command(url, goos string, kiosk bool) (string, []string, error) {
	switch goos {
	case "linux":
		if kiosk {
			return KioskBrowser, []string{"--kiosk", "--noerrdialogs", "--disable-translate", url}, nil
		}
		return "xdg-open", []string{url}, nil
	case "darwin":
		if kiosk {
			return "open", []string{"-a", "Google Chrome", "--args", "--kiosk", url}, nil
		}
		return "open", []string{url}, nil
	case "windows":
		if kiosk {
			return "cmd", []string{"/c", "start", "msedge", "--kiosk", url, "--edge-kiosk-type=fullscreen"}, nil
		}
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
