package acoustid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"rcheck/internal/recognition"
)

// Fingerprinter computes an acoustic fingerprint for an audio file.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string) (recognition.Fingerprint, error)
}

// FPCalc runs the chromaprint fpcalc tool.
type FPCalc struct {
	Binary string
}

type fpcalcOutput struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

// Fingerprint runs `fpcalc -json path` and decodes its output.
func (f FPCalc) Fingerprint(ctx context.Context, path string) (recognition.Fingerprint, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "fpcalc"
	}

	cmd := exec.CommandContext(ctx, binary, "-json", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return recognition.Fingerprint{}, recognition.NewError(serviceName, recognition.ErrFingerprint,
			"AcoustID: fingerprint failed", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	var out fpcalcOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return recognition.Fingerprint{}, recognition.NewError(serviceName, recognition.ErrFingerprint,
			"AcoustID: fingerprint failed", fmt.Errorf("parse fpcalc output: %w", err))
	}

	return recognition.Fingerprint{
		Encoded:  out.Fingerprint,
		Duration: int(math.Round(out.Duration)),
	}, nil
}
