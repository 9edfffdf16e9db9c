// Package media reads the facts the pipeline needs about a source audio file:
// size, duration and any embedded title/artist tags.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.senan.xyz/taglib"
)

// AudioFile describes a source file. It is not modified after Read returns.
type AudioFile struct {
	Path     string
	Name     string
	Size     int64
	Duration float64 // seconds, 0 when undeterminable
	Title    string
	Artist   string
}

// Read stats path and fills in its size. Duration and tags are left to the
// caller: probing runs an external tool and tag parsing reads the file.
func Read(path string) (AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return AudioFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return AudioFile{}, fmt.Errorf("%s is a directory", path)
	}

	f := AudioFile{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
	}
	return f, nil
}

// ReadTags returns the embedded title and artist, or empty strings when the
// file has no readable tags.
func ReadTags(path string) (title, artist string) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return "", ""
	}
	return firstTag(tags, taglib.Title), firstTag(tags, taglib.Artist)
}

// TagDuration returns the stream length reported by taglib, or 0.
func TagDuration(path string) float64 {
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return 0
	}
	return props.Length.Seconds()
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// probeResult is the subset of ffprobe's -show_format JSON we use.
type probeResult struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// ProbeDuration runs ffprobe against path and returns the container duration
// in seconds. Any failure yields 0: duration is advisory only.
func ProbeDuration(ctx context.Context, binary, path string) float64 {
	d, err := probe(ctx, binary, path)
	if err != nil {
		return 0
	}
	return d
}

func probe(ctx context.Context, binary, path string) (float64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, fmt.Errorf("ffprobe: invalid duration %q", result.Format.Duration)
	}
	return d, nil
}

// FormatClock renders seconds as m:ss, or "?:??" when unknown.
func FormatClock(seconds float64) string {
	if seconds <= 0 {
		return "?:??"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
