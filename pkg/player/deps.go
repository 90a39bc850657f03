package player

import (
	"fmt"
	"os/exec"
	"strings"
)

// ValidateSystemDependencies checks that the external binaries playback
// depends on are installed and runnable.
func ValidateSystemDependencies() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg binary not found: %w", err)
	}

	output, err := exec.Command("ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("ffmpeg validation failed - unable to get version: %w", err)
	}
	if !strings.Contains(string(output), "ffmpeg version") {
		return fmt.Errorf("ffmpeg validation failed - unexpected version output")
	}

	return nil
}
