// Package system holds the thin adapters onto the desktop: launching
// applications, opening the browser, and reading the foreground window,
// screen text and camera emotion through external tools. Every call is
// bounded by its context; failures are reported, never fatal.
package system

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"aide/internal/monitor"
)

// Launch starts a desktop application and detaches from it.
func Launch(ctx context.Context, command string) error {
	name, args := splitCommand(command)
	if name == "" {
		return fmt.Errorf("empty launch command")
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	// Reap in the background so the child never zombies.
	go cmd.Wait()
	return nil
}

// OpenSearch points the default browser at a web search for query.
func OpenSearch(ctx context.Context, query string) error {
	u := "https://duckduckgo.com/?q=" + url.QueryEscape(query)
	if err := exec.CommandContext(ctx, "xdg-open", u).Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

func splitCommand(s string) (string, []string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// XWindowSampler reads the foreground window through xdotool.
type XWindowSampler struct{}

func (XWindowSampler) Sample(ctx context.Context) (monitor.WindowSample, error) {
	title, err := output(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return monitor.WindowSample{}, err
	}
	app, err := output(ctx, "xdotool", "getactivewindow", "getwindowclassname")
	if err != nil {
		// Older xdotool lacks classname; the title alone still counts.
		app = ""
	}
	return monitor.WindowSample{App: app, Title: title}, nil
}

// TesseractOCR grabs the screen and runs it through tesseract.
type TesseractOCR struct{}

func (TesseractOCR) Sample(ctx context.Context) (string, error) {
	grab := exec.CommandContext(ctx, "import", "-silent", "-window", "root", "png:-")
	ocr := exec.CommandContext(ctx, "tesseract", "stdin", "stdout")

	pipe, err := grab.StdoutPipe()
	if err != nil {
		return "", err
	}
	ocr.Stdin = pipe

	if err := grab.Start(); err != nil {
		return "", fmt.Errorf("screen grab: %w", err)
	}
	out, err := ocr.Output()
	grab.Wait()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommandEmotion delegates emotion classification to a user-supplied
// command expected to print "<label> <confidence>" on stdout.
type CommandEmotion struct {
	Command string
}

func (c CommandEmotion) Sample(ctx context.Context) (string, float64, error) {
	name, args := splitCommand(c.Command)
	if name == "" {
		return "", 0, fmt.Errorf("no emotion command configured")
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", 0, fmt.Errorf("emotion command: %w", err)
	}

	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", 0, fmt.Errorf("emotion command produced no output")
	}
	label := fields[0]
	confidence := 1.0
	if len(fields) > 1 {
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			confidence = v
		}
	}
	return label, confidence, nil
}

func output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}
