package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Desktop drives audio level, screen brightness and screenshots through
// the usual X session tools.
type Desktop struct {
	// ShotDir is where screenshots land; empty means the user's home.
	ShotDir string
}

// Volume adjusts the default sink with pactl. direction is one of up,
// down, set, mute or unmute; level is the percentage for set.
func (Desktop) Volume(ctx context.Context, direction string, level int) error {
	switch direction {
	case "up":
		return run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%")
	case "down":
		return run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%")
	case "mute":
		return run(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", "1")
	case "unmute":
		return run(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", "0")
	case "set":
		if level < 0 || level > 150 {
			return fmt.Errorf("volume %d%% out of range", level)
		}
		return run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level))
	default:
		return fmt.Errorf("unknown volume direction %q", direction)
	}
}

// Brightness adjusts the backlight with brightnessctl.
func (Desktop) Brightness(ctx context.Context, direction string, level int) error {
	switch direction {
	case "up":
		return run(ctx, "brightnessctl", "set", "10%+")
	case "down":
		return run(ctx, "brightnessctl", "set", "10%-")
	case "set":
		if level < 0 || level > 100 {
			return fmt.Errorf("brightness %d%% out of range", level)
		}
		return run(ctx, "brightnessctl", "set", fmt.Sprintf("%d%%", level))
	default:
		return fmt.Errorf("unknown brightness direction %q", direction)
	}
}

// Screenshot captures the full screen to a timestamped file and returns
// its path.
func (d Desktop) Screenshot(ctx context.Context) (string, error) {
	dir := d.ShotDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = home
	}
	path := filepath.Join(dir, time.Now().Format("aide-20060102-150405.png"))
	if err := run(ctx, "import", "-silent", "-window", "root", path); err != nil {
		return "", err
	}
	return path, nil
}

func run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}
