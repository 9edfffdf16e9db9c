// Package segment turns a source audio file into the sample sent to a
// recognition provider, trimming it with ffmpeg when a trim spec is given.
package segment

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"rcheck/internal/logger"
	"rcheck/internal/media"
)

// TrimSpec is a requested sample length: absolute seconds or a percentage
// of the source duration.
type TrimSpec struct {
	Value   float64
	Percent bool
}

// IsZero reports whether no trim was requested.
func (s TrimSpec) IsZero() bool { return s.Value <= 0 }

func (s TrimSpec) String() string {
	if s.IsZero() {
		return ""
	}
	if s.Percent {
		return strconv.FormatFloat(s.Value, 'f', -1, 64) + "%"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// ParseTrim parses "20" (seconds) or "10%" (percent). It returns false for
// empty, non-numeric or non-positive input.
func ParseTrim(raw string) (TrimSpec, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TrimSpec{}, false
	}

	spec := TrimSpec{}
	if strings.HasSuffix(raw, "%") {
		spec.Percent = true
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return TrimSpec{}, false
	}
	spec.Value = v
	return spec, true
}

// Target computes the sample length in seconds for a source of the given
// total duration, capped at total. It returns false when nothing should be cut.
func (s TrimSpec) Target(total float64) (float64, bool) {
	if s.IsZero() || total <= 0 {
		return 0, false
	}
	want := s.Value
	if s.Percent {
		want = total * s.Value / 100
	}
	return math.Min(want, total), true
}

// Tracker is told about temporary files so they can be removed if the
// process is interrupted before the owning task releases them.
type Tracker interface {
	Track(path string)
	Untrack(path string)
}

// Segment is the sample file used by one task.
type Segment struct {
	Path    string
	Temp    bool
	tracker Tracker
}

// Release removes the segment file if it is temporary. Safe to call more than once.
func (s *Segment) Release() error {
	if s == nil || !s.Temp {
		return nil
	}
	s.Temp = false
	if s.tracker != nil {
		s.tracker.Untrack(s.Path)
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove segment %s: %w", s.Path, err)
	}
	return nil
}

// Preparer measures and trims source files.
type Preparer struct {
	FFmpeg  string
	FFprobe string
	TmpDir  string
	Tracker Tracker
	Logger  *logger.Logger
}

// New creates a Preparer writing temporary segments into tmpDir.
func New(ffmpeg, ffprobe, tmpDir string, log *logger.Logger) *Preparer {
	return &Preparer{
		FFmpeg:  ffmpeg,
		FFprobe: ffprobe,
		TmpDir:  tmpDir,
		Logger:  log,
	}
}

// MeasureDuration returns the duration of path in seconds, or 0 if it cannot
// be determined. ffprobe is authoritative; taglib is consulted when it fails.
func (p *Preparer) MeasureDuration(ctx context.Context, path string) float64 {
	if d := media.ProbeDuration(ctx, p.FFprobe, path); d > 0 {
		return d
	}
	d := media.TagDuration(path)
	if d > 0 {
		p.Logger.Debug("ffprobe failed for %s, using tag duration %.1fs", path, d)
	}
	return d
}

// ReadTags returns the embedded title and artist of path, empty when the file
// carries none.
func (p *Preparer) ReadTags(path string) (title, artist string) {
	return media.ReadTags(path)
}

// Prepare returns the sample for path. Without a usable spec or duration, or
// when trimming fails entirely, the original file is returned unchanged.
func (p *Preparer) Prepare(ctx context.Context, path string, spec TrimSpec, total float64) Segment {
	original := Segment{Path: path}

	target, ok := spec.Target(total)
	if !ok {
		return original
	}
	length := strconv.FormatFloat(target, 'f', 3, 64)

	tmp, err := p.tempFile(filepath.Ext(path))
	if err != nil {
		p.Logger.Warn("Cannot create temp file for %s: %v", filepath.Base(path), err)
		return original
	}

	copyErr := p.trim(ctx, path, tmp, length, "-c", "copy")
	if copyErr == nil {
		return p.owned(tmp)
	}
	os.Remove(tmp)
	p.Logger.Debug("stream copy trim of %s failed, re-encoding: %v", filepath.Base(path), copyErr)

	tmp, err = p.tempFile(".mp3")
	if err != nil {
		p.Logger.Warn("Cannot create temp file for %s: %v", filepath.Base(path), err)
		return original
	}
	if err := p.trim(ctx, path, tmp, length, "-c:a", "libmp3lame"); err != nil {
		os.Remove(tmp)
		p.Logger.Warn("Trim failed for %s, using full file: %v", filepath.Base(path), err)
		return original
	}
	return p.owned(tmp)
}

func (p *Preparer) owned(path string) Segment {
	if p.Tracker != nil {
		p.Tracker.Track(path)
	}
	return Segment{Path: path, Temp: true, tracker: p.Tracker}
}

func (p *Preparer) tempFile(ext string) (string, error) {
	if ext == "" {
		ext = ".mp3"
	}
	f, err := os.CreateTemp(p.TmpDir, "segment-*"+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func (p *Preparer) trim(ctx context.Context, src, dst, length string, codec ...string) error {
	binary := p.FFmpeg
	if binary == "" {
		binary = "ffmpeg"
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", src, "-t", length}
	args = append(args, codec...)
	args = append(args, dst)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty file")
	}
	return nil
}
