// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bodaay/prepamirror/internal/logging"
	"github.com/bodaay/prepamirror/internal/tui"
	"github.com/bodaay/prepamirror/pkg/mirror"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	JSONOut  bool
	Quiet    bool
	Verbose  bool
	Config   string
	LogFile  string
	LogLevel string
}

// mirrorOpts holds the flags of the mirror command.
type mirrorOpts struct {
	job      mirror.Job
	cfg      mirror.Settings
	login    string
	password string
	dryRun   bool
	report   string

	// updateSet is true once update mode came from a flag or the config file.
	updateSet bool
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "prepamirror",
		Short:         "Mirror the documents of a Cahier de Prépa course site",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(logging.Config{
				Level:   ro.LogLevel,
				File:    ro.LogFile,
				Verbose: ro.Verbose,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}

	// Global flags
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON events (progress, plan)")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (errors and final summary only)")
	root.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "Verbose logs on stderr (debug details)")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&ro.LogFile, "log-file", "", "Write JSON logs to a rotated file")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add commands
	mirrorCmd := newMirrorCmd(ctx, ro, version)
	root.AddCommand(mirrorCmd)
	root.AddCommand(newVersionCmd(ro, version))
	root.AddCommand(newConfigCmd())

	// Make mirror the default command when no subcommand is given
	mo := &mirrorOpts{}
	addMirrorFlags(root, mo, version)
	root.PreRunE = mirrorPreRun(ro, mo)
	root.RunE = mirrorRun(ctx, ro, mo)
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		if isCanceled(err) {
			fmt.Fprintln(os.Stderr, "interrupted")
			return err
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func newMirrorCmd(ctx context.Context, ro *RootOpts, version string) *cobra.Command {
	mo := &mirrorOpts{}
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Log in and download every document into a local tree",
		Long: `Log in to the course site, walk every listing page from the root
listing and save each document under the output directory, one
subdirectory per folder.

Credentials come from --login/--password, the config file ("login"),
PREPA_LOGIN/PREPA_PASSWORD (a .env file is read first), or a prompt.`,
		Args:    cobra.NoArgs,
		PreRunE: mirrorPreRun(ro, mo),
		RunE:    mirrorRun(ctx, ro, mo),
	}
	addMirrorFlags(cmd, mo, version)
	return cmd
}

func addMirrorFlags(cmd *cobra.Command, mo *mirrorOpts, version string) {
	def := mirror.DefaultSettings()
	job := mirror.DefaultJob()

	// Job flags
	cmd.Flags().StringVar(&mo.job.Site, "site", job.Site, "Course site base URL")
	cmd.Flags().StringVar(&mo.job.Listing, "listing", job.Listing, "Root listing page, relative to --site")
	cmd.Flags().StringVarP(&mo.job.OutputDir, "output", "o", job.OutputDir, "Destination directory")
	cmd.Flags().BoolVarP(&mo.job.Update, "update", "u", false, "Only download documents missing locally")

	// Settings flags
	cmd.Flags().StringVar(&mo.cfg.Extension, "extension", def.Extension, "Extension appended to document names")
	cmd.Flags().StringVar(&mo.cfg.RecentHeading, "recent-heading", def.RecentHeading, "Heading that starts the ignored recent-documents block")
	cmd.Flags().StringVar(&mo.cfg.Timeout, "timeout", def.Timeout, "Per-request timeout")
	cmd.Flags().IntVar(&mo.cfg.Retries, "retries", def.Retries, "Extra attempts for transport errors and 429/5xx")
	cmd.Flags().StringVar(&mo.cfg.BackoffInitial, "backoff-initial", def.BackoffInitial, "Initial retry backoff duration")
	cmd.Flags().StringVar(&mo.cfg.BackoffMax, "backoff-max", def.BackoffMax, "Maximum retry backoff duration")
	cmd.Flags().StringVar(&mo.cfg.UserAgent, "user-agent", "prepamirror/"+version, "User-Agent header")

	// Credentials
	cmd.Flags().StringVar(&mo.login, "login", "", "Account login (also reads PREPA_LOGIN env)")
	cmd.Flags().StringVar(&mo.password, "password", "", "Account password (also reads PREPA_PASSWORD env)")

	// CLI-only flags
	cmd.Flags().BoolVar(&mo.dryRun, "dry-run", false, "Plan only: list the documents and exit")
	cmd.Flags().StringVar(&mo.report, "report", "", "Write the run summary to this file (.json or .yaml)")
}

func mirrorPreRun(ro *RootOpts, mo *mirrorOpts) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		mo.updateSet = cmd.Flags().Changed("update")
		return applySettingsDefaults(cmd, ro, mo)
	}
}

func mirrorRun(ctx context.Context, ro *RootOpts, mo *mirrorOpts) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := logging.L()

		creds, job, err := finalize(newTerminalPrompter(), mo)
		if err != nil {
			return err
		}
		log.Info("starting",
			logging.String("site", job.Site),
			logging.String("listing", job.Listing),
			logging.String("output", job.OutputDir),
			logging.String("login", creds.Login))

		sess, err := mirror.Authenticate(ctx, job, mo.cfg, creds)
		if err != nil {
			log.Error("login failed", logging.Err(err))
			return err
		}

		// Plan-only mode
		if mo.dryRun {
			p, err := mirror.PlanMirror(ctx, sess, job, mo.cfg)
			if err != nil {
				return err
			}
			return printPlan(os.Stdout, ro, job, p)
		}

		// Progress mode selection
		var progress mirror.ProgressFunc
		if ro.JSONOut {
			progress = jsonProgress(os.Stdout)
		} else if ro.Quiet {
			progress = cliProgress(os.Stdout, os.Stderr)
		} else {
			ui := tui.NewLiveRenderer()
			defer ui.Close()
			progress = ui.Handler()
		}

		sum, err := mirror.Mirror(ctx, sess, job, mo.cfg, logProgress(log, progress))
		if mo.report != "" && sum != nil {
			if werr := writeReport(mo.report, sum); werr != nil {
				log.Error("report not written", logging.String("path", mo.report), logging.Err(werr))
				fmt.Fprintln(os.Stderr, "error: report:", werr)
			}
		}
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			log.Warn("mirror finished with failures", logging.Int("failed", sum.Failed))
		}
		return nil
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// finalize resolves credentials and update mode once, before any request.
func finalize(p *prompter, mo *mirrorOpts) (mirror.Credentials, mirror.Job, error) {
	j := mo.job

	// A missing .env is fine; existing variables are never overridden.
	_ = godotenv.Load()

	creds, err := resolveCredentials(p, mo.login, mo.password)
	if err != nil {
		return creds, j, err
	}

	if !mo.updateSet {
		if p.interactive {
			ok, err := p.confirm("Mettre à jour uniquement les nouveaux fichiers ? (N/Y) ")
			if err != nil {
				return creds, j, err
			}
			j.Update = ok
		} else {
			j.Update = false
		}
	}
	return creds, j, nil
}

func resolveCredentials(p *prompter, login, password string) (mirror.Credentials, error) {
	c := mirror.Credentials{Login: strings.TrimSpace(login), Password: password}
	if c.Login == "" {
		c.Login = strings.TrimSpace(os.Getenv("PREPA_LOGIN"))
	}
	if c.Password == "" {
		c.Password = os.Getenv("PREPA_PASSWORD")
	}

	if c.Login == "" || c.Password == "" {
		if !p.interactive {
			return c, fmt.Errorf("%w: pass --login/--password or set PREPA_LOGIN/PREPA_PASSWORD", mirror.ErrMissingCredentials)
		}
	}
	var err error
	if c.Login == "" {
		if c.Login, err = p.line("Identifiant : "); err != nil {
			return c, err
		}
	}
	if c.Password == "" {
		if c.Password, err = p.secret("Mot de passe : "); err != nil {
			return c, err
		}
	}
	if c.Login == "" || c.Password == "" {
		return c, mirror.ErrMissingCredentials
	}
	return c, nil
}

func applySettingsDefaults(cmd *cobra.Command, ro *RootOpts, mo *mirrorOpts) error {
	path := ro.Config
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg map[string]any

	// Parse based on file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid YAML config file: %w", err)
		}
	default: // .json or unknown
		if err := json.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid JSON config file: %w", err)
		}
	}

	setStr := func(flagName string, set func(string)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			set(fmt.Sprint(v))
		}
	}
	setInt := func(flagName string, set func(int)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			var x int
			fmt.Sscan(fmt.Sprint(v), &x)
			set(x)
		}
	}

	setStr("site", func(v string) { mo.job.Site = v })
	setStr("listing", func(v string) { mo.job.Listing = v })
	setStr("output", func(v string) { mo.job.OutputDir = v })
	setStr("extension", func(v string) { mo.cfg.Extension = v })
	setStr("recent-heading", func(v string) { mo.cfg.RecentHeading = v })
	setStr("timeout", func(v string) { mo.cfg.Timeout = v })
	setInt("retries", func(v int) { mo.cfg.Retries = v })
	setStr("backoff-initial", func(v string) { mo.cfg.BackoffInitial = v })
	setStr("backoff-max", func(v string) { mo.cfg.BackoffMax = v })
	setStr("user-agent", func(v string) { mo.cfg.UserAgent = v })
	setStr("login", func(v string) { mo.login = v })

	if !cmd.Flags().Changed("update") {
		if v, ok := cfg["update"]; ok && v != nil {
			u, err := strconv.ParseBool(fmt.Sprint(v))
			if err != nil {
				return fmt.Errorf("invalid config value for update: %w", err)
			}
			mo.job.Update = u
			mo.updateSet = true
		}
	}
	return nil
}

func printPlan(w io.Writer, ro *RootOpts, job mirror.Job, p *mirror.Plan) error {
	if ro.JSONOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	todo := p.ToBeDownloaded(job.Update)
	fmt.Fprintf(w, "Plan for %s (%d folders, %d documents, %d to download):\n",
		job.OutputDir, p.Folders, len(p.Items), len(todo))
	for _, it := range p.Items {
		mark := " "
		if it.Exists {
			mark = "="
		}
		fmt.Fprintf(w, "  %s %s\n", mark, it.Path)
	}
	for _, f := range p.Failed {
		fmt.Fprintf(w, "  ! %s: %s\n", f.Path, f.Err)
	}
	return nil
}

// writeReport saves the summary as YAML for .yaml/.yml paths, JSON otherwise.
func writeReport(path string, sum *mirror.Summary) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(sum)
	default:
		data, err = json.MarshalIndent(sum, "", "  ")
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// isCanceled reports whether err comes from an interrupted run.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
