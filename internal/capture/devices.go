package capture

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var errInstallHint = errors.New("executable not found, install with: sudo apt install -y v4l-utils")

// Device is a camera that can be passed to the grab command
type Device struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ListDevices returns the V4L2 capture devices reported by v4l2-ctl.
// ListDevices returns an error if no devices are available.
func ListDevices() ([]Device, error) {
	cmd := exec.Command("v4l2-ctl", "--list-devices")
	buf, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = errInstallHint
		}
		return nil, fmt.Errorf("listing devices using v4l2-ctl: %w", err)
	}
	return parseDevices(string(buf))
}

// parseDevices reads v4l2-ctl output: an unindented card name followed by
// tab-indented device nodes. Only /dev/video* nodes are capture candidates.
func parseDevices(s string) ([]Device, error) {
	var card string
	devices := []Device{}
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") {
			card = strings.TrimSuffix(strings.TrimSpace(line), ":")
			continue
		}
		node := strings.TrimSpace(line)
		if card == "" || !strings.HasPrefix(node, "/dev/video") {
			continue
		}
		devices = append(devices, Device{Name: card, Path: node})
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices available")
	}
	return devices, nil
}

// Index returns the number the grab command expects for this device, or
// -1 when the node is not of the form /dev/videoN
func (d Device) Index() int {
	var n int
	if _, err := fmt.Sscanf(d.Path, "/dev/video%d", &n); err != nil {
		return -1
	}
	return n
}
