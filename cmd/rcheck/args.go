package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rcheck/internal/config"
	"rcheck/internal/recognition"
	"rcheck/pkg/utils"
)

type options struct {
	configPath string
	initConfig bool

	acoustid bool
	acr      bool
	audiotag bool
	audd     bool

	inputs     []string
	time       string
	outputFile string
	stat       bool
	color      bool
	fullInfo   bool
	threads    int
	all        bool
	directory  string
	recursive  bool
	verbose    bool
}

func newRootCommand() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rcheck [flags] [file...]",
		Short: "Check audio files for copyrighted material",
		Long: `rcheck sends each audio file to one or more recognition services and
classifies it as C (copyrighted), F (free) or U (unknown).

Config file locations (checked in order):
  ./rcheck.yaml, ./rcheck.yml, ./rcheck.toml
  ~/.config/rcheck/config.yaml
  ~/.rcheck.yaml`,
		Example: `  # Check one file against AudD, trimming to the first 20 seconds
  rcheck --audd --time 20 song.mp3

  # Check every mp3 in ./music with two services and 4 workers
  rcheck --all -d ./music --acoustid --audiotag -t 4 --stat

  # Create a config file to persist API keys
  rcheck --init-config`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.initConfig {
				return initConfigFile(cmd, opts.configPath)
			}
			cfg, configPath, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			files, err := resolveFiles(cfg, opts, args)
			if err != nil {
				return err
			}
			return run(cfg, configPath, files)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	f.BoolVar(&opts.initConfig, "init-config", false, "Create a default config file and exit")

	f.BoolVar(&opts.acoustid, "acoustid", false, "Use AcoustID fingerprint lookup")
	f.BoolVar(&opts.acr, "acr", false, "Use ACRCloud recognition")
	f.BoolVar(&opts.audiotag, "audiotag", false, "Use AudioTag recognition")
	f.BoolVar(&opts.audd, "audd", false, "Use AudD recognition")
	f.BoolVar(&opts.audd, "audioo", false, "Alias for --audd")
	f.MarkHidden("audioo")

	f.StringArrayVarP(&opts.inputs, "input", "i", nil, "Input file (repeatable, same as positional arguments)")
	f.StringVar(&opts.time, "time", "", "Trim samples to N seconds (20) or a percentage (10%)")
	f.StringVarP(&opts.outputFile, "file", "f", "", "Write results to this file")
	f.BoolVar(&opts.stat, "stat", false, "Show summary statistics")
	f.BoolVar(&opts.color, "color", false, "Color output")
	f.BoolVar(&opts.fullInfo, "fullinfo", false, "Show confidence (AudioTag only)")
	f.IntVarP(&opts.threads, "threads", "t", 1, fmt.Sprintf("Number of workers (1-%d)", config.MaxWorkers))
	f.BoolVar(&opts.all, "all", false, "Check every matching file in --dir")
	f.StringVarP(&opts.directory, "dir", "d", ".", "Directory used with --all")
	f.BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories with --all")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show detailed output")

	return cmd
}

// loadConfig loads the config file and applies flags on top.
// Priority: CLI flags > config file > defaults
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, string, error) {
	configPath := opts.configPath
	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to load config: %w", err)
	}
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	var selected []string
	for _, p := range []struct {
		on   bool
		kind recognition.Kind
	}{
		{opts.audd, recognition.KindAudD},
		{opts.audiotag, recognition.KindAudioTag},
		{opts.acoustid, recognition.KindAcoustID},
		{opts.acr, recognition.KindACRCloud},
	} {
		if p.on {
			selected = append(selected, string(p.kind))
		}
	}
	if len(selected) > 0 {
		cfg.Providers = selected
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Time = opts.time
	}
	if flags.Changed("file") {
		cfg.OutputFile = opts.outputFile
	}
	if flags.Changed("threads") {
		cfg.Workers = opts.threads
	}
	if flags.Changed("dir") {
		cfg.Directory = opts.directory
	}
	if opts.stat {
		cfg.Stat = true
	}
	if opts.color {
		cfg.Color = true
	}
	if opts.fullInfo {
		cfg.FullInfo = true
	}
	if opts.recursive {
		cfg.Recursive = true
	}
	if opts.verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("configuration error: %w", err)
	}
	return cfg, configPath, nil
}

// resolveFiles returns the explicit inputs followed by the --all matches.
func resolveFiles(cfg config.Config, opts *options, args []string) ([]string, error) {
	files := append(append([]string{}, opts.inputs...), args...)
	if opts.all {
		found, err := utils.FindAudioFiles(cfg.Directory, cfg.Extensions, cfg.Recursive)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files: pass file paths or use --all")
	}
	return files, nil
}

// initConfigFile creates a new config file with default values
func initConfigFile(cmd *cobra.Command, path string) error {
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Config file already exists at: %s\n", path)
		fmt.Fprintln(out, "Delete it first if you want to recreate it.")
		return nil
	}

	if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(out, "Created default config file at: %s\n", path)
	fmt.Fprintln(out, "\nYou can now edit this file to add your API keys.")
	fmt.Fprintln(out, "Available options:")
	fmt.Fprintln(out, "  providers: [audd, audiotag, acoustid, acr]")
	fmt.Fprintln(out, "  threads: 1-16 (number of parallel workers)")
	fmt.Fprintln(out, "  time: seconds (20) or percentage (10%) of each file to send")
	fmt.Fprintln(out, "  acoustid.api_key, audiotag.api_key, audd.api_token, acrcloud.access_key/access_secret")
	return nil
}
