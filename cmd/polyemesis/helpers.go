package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"polyemesis/internal/multistream"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// writeJSON encodes v as indented JSON to the command's stdout, for the
// --json variants of the listing commands.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderState colors running processes green and failed ones red when the
// output is a terminal.
func renderState(state string, colorize bool) string {
	if !colorize {
		return state
	}
	switch strings.ToLower(state) {
	case "running", "start":
		return ansiGreen + state + ansiReset
	case "failed", "error":
		return ansiRed + state + ansiReset
	default:
		return state
	}
}

func formatBytes(value uint64) string {
	const unit = 1024
	if value < unit {
		return fmt.Sprintf("%d B", value)
	}
	div, exp := uint64(unit), 0
	for n := value / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(value)/float64(div), "KMGTPE"[exp])
}

func formatUptime(seconds uint64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func parseService(name string) (multistream.Service, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "twitch":
		return multistream.ServiceTwitch, nil
	case "youtube":
		return multistream.ServiceYouTube, nil
	case "facebook":
		return multistream.ServiceFacebook, nil
	case "kick":
		return multistream.ServiceKick, nil
	case "tiktok":
		return multistream.ServiceTikTok, nil
	case "instagram":
		return multistream.ServiceInstagram, nil
	case "x", "twitter":
		return multistream.ServiceX, nil
	case "custom":
		return multistream.ServiceCustom, nil
	default:
		return 0, fmt.Errorf("unknown service %q (twitch, youtube, facebook, kick, tiktok, instagram, x, custom)", name)
	}
}

func parseOrientation(name string) (multistream.Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return multistream.OrientationAuto, nil
	case "horizontal", "landscape":
		return multistream.OrientationHorizontal, nil
	case "vertical", "portrait":
		return multistream.OrientationVertical, nil
	case "square":
		return multistream.OrientationSquare, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q (auto, horizontal, vertical, square)", name)
	}
}
