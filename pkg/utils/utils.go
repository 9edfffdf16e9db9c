package utils

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Requirement is an external command the run relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// CheckDependencies verifies that required external commands are installed.
// Missing optional commands are returned as warnings.
func CheckDependencies(reqs []Requirement) (warnings []string, err error) {
	var missing []string
	for _, req := range reqs {
		cmd := strings.TrimSpace(req.Command)
		if cmd != "" {
			if _, lookErr := exec.LookPath(cmd); lookErr == nil {
				continue
			}
		}
		msg := fmt.Sprintf("%s (%q) not found: %s", req.Name, cmd, req.Description)
		if req.Optional {
			warnings = append(warnings, msg)
		} else {
			missing = append(missing, msg)
		}
	}
	if len(missing) > 0 {
		return warnings, fmt.Errorf("required commands missing: %s", strings.Join(missing, "; "))
	}
	return warnings, nil
}

// CreateTempDir creates a temporary folder for trimmed segments
func CreateTempDir(parent string) (string, error) {
	dir, err := os.MkdirTemp(parent, "rcheck-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return dir, nil
}

// Cleanup removes the temporary folder.
// Safety check: only deletes directories created by CreateTempDir
func Cleanup(dir string) error {
	if dir == "" {
		return nil
	}

	if !strings.HasPrefix(filepath.Base(filepath.Clean(dir)), "rcheck-") {
		return fmt.Errorf("refusing to delete directory not created by rcheck: %s", dir)
	}

	return os.RemoveAll(dir)
}

// FindAudioFiles lists files in dir whose extension is in exts
// (case-insensitive, with or without the leading dot), sorted by path.
// Subdirectories are only searched when recursive is set.
func FindAudioFiles(dir string, exts []string, recursive bool) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	wanted := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		wanted[e] = true
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}
