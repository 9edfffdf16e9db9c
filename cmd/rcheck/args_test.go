package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rcheck/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rcheck.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `providers: [acr]
threads: 3
time: "10%"
output_file: from-file.txt
`)

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg config.Config)
		wantErr bool
	}{
		{
			name: "file values without flags",
			args: []string{"-c", path},
			check: func(t *testing.T, cfg config.Config) {
				if strings.Join(cfg.Providers, ",") != "acr" {
					t.Errorf("Providers = %v", cfg.Providers)
				}
				if cfg.Workers != 3 || cfg.Time != "10%" || cfg.OutputFile != "from-file.txt" {
					t.Errorf("cfg = %+v", cfg)
				}
			},
		},
		{
			name: "flags win",
			args: []string{"-c", path, "--acoustid", "--audd", "-t", "8", "--time", "20", "-f", "out.txt", "--stat"},
			check: func(t *testing.T, cfg config.Config) {
				if got := strings.Join(cfg.Providers, ","); got != "audd,acoustid" {
					t.Errorf("Providers = %s, want audd,acoustid", got)
				}
				if cfg.Workers != 8 || cfg.Time != "20" || cfg.OutputFile != "out.txt" || !cfg.Stat {
					t.Errorf("cfg = %+v", cfg)
				}
			},
		},
		{
			name: "audioo alias",
			args: []string{"-c", path, "--audioo"},
			check: func(t *testing.T, cfg config.Config) {
				if strings.Join(cfg.Providers, ",") != "audd" {
					t.Errorf("Providers = %v", cfg.Providers)
				}
			},
		},
		{
			name:    "too many threads",
			args:    []string{"-c", path, "-t", "17"},
			wantErr: true,
		},
		{
			name:    "bad time",
			args:    []string{"-c", path, "--time", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &options{}
			cmd := newCommand(opts)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error: %v", err)
			}
			cfg, configPath, err := loadConfig(cmd, opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if configPath != path {
				t.Errorf("configPath = %q, want %q", configPath, path)
			}
			tt.check(t, cfg)
		})
	}
}

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.mp3", "skip.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.DefaultConfig()
	cfg.Directory = dir

	files, err := resolveFiles(cfg, &options{inputs: []string{"first.mp3"}, all: true}, []string{"second.mp3"})
	if err != nil {
		t.Fatalf("resolveFiles() error: %v", err)
	}
	want := []string{"first.mp3", "second.mp3", filepath.Join(dir, "a.mp3"), filepath.Join(dir, "b.mp3")}
	if strings.Join(files, "|") != strings.Join(want, "|") {
		t.Errorf("files = %v, want %v", files, want)
	}

	if _, err := resolveFiles(cfg, &options{}, nil); err == nil {
		t.Error("expected error without input files")
	}
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := initConfigFile(cmd, path); err != nil {
		t.Fatalf("initConfigFile() error: %v", err)
	}
	if !strings.Contains(out.String(), "Created default config file") {
		t.Errorf("output = %q", out.String())
	}
	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if cfg.Workers != 1 || cfg.AudioTag.PollAttempts != 30 || cfg.Tools.FPCalc != "fpcalc" {
		t.Errorf("loaded config = %+v", cfg)
	}

	out.Reset()
	if err := initConfigFile(cmd, path); err != nil {
		t.Fatalf("second initConfigFile() error: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRequirements(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers = []string{"audd"}
	for _, r := range requirements(cfg) {
		if !r.Optional {
			t.Errorf("%s should be optional without trimming or acoustid", r.Name)
		}
	}

	cfg.Providers = []string{"acoustid"}
	cfg.Time = "20"
	required := map[string]bool{}
	for _, r := range requirements(cfg) {
		if !r.Optional {
			required[r.Name] = true
		}
	}
	if !required["FFmpeg"] || !required["fpcalc"] || required["FFprobe"] {
		t.Errorf("required = %v", required)
	}
}
