package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/autodl-bot-go/app"
	"github.com/soocke/autodl-bot-go/assets"
	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/capture"
	"github.com/soocke/autodl-bot-go/domain/profile"
	"github.com/soocke/autodl-bot-go/domain/stats"
	"github.com/soocke/autodl-bot-go/domain/vision"
	"github.com/soocke/autodl-bot-go/domain/vision/features"
)

type runFlags struct {
	config       string
	profile      string
	headless     bool
	verbose      bool
	startRunning bool
}

func newRootCmd() *cobra.Command {
	var f runFlags
	root := &cobra.Command{
		Use:           "autodl",
		Short:         "Screen-driven download clicker with template matching and human-like pointer motion.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVarP(&f.config, "config", "c", "config.yaml", "config file")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	run := &cobra.Command{
		Use:   "run",
		Short: "Start the bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), f)
		},
	}
	for _, c := range []*cobra.Command{root, run} {
		c.Flags().StringVarP(&f.profile, "profile", "p", "", "profile name, overrides profiles.active_profile")
		c.Flags().BoolVar(&f.headless, "headless", false, "run without the status window")
		c.Flags().BoolVar(&f.startRunning, "start-running", false, "start unpaused")
	}

	root.AddCommand(run, newDisplaysCmd(&f), newProfilesCmd(&f), newInitConfigCmd(&f), newStatsCmd(&f))
	return root
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func runBot(ctx context.Context, f runFlags) error {
	logger, closer := NewLogger(logLevel(f.verbose), logFile)
	defer closer.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.BuildContainer(app.Options{
		ConfigPath:   f.config,
		Profile:      f.profile,
		Headless:     f.headless,
		StartRunning: f.startRunning,
		Features: func() (orb, akaze vision.Method) {
			return features.NewORB(), features.NewAKAZE()
		},
	}, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	cfg := c.Controller.Snapshot().Config
	var front app.Frontend
	if c.WantsUI(cfg) {
		front = newWindow(c, cfg.UI, logger)
	}
	err = app.Run(ctx, c, front)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newDisplaysCmd(f *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List capturable displays",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := NewLogger(logLevel(f.verbose), "")
			displays, err := capture.NewService(logger).ListDisplays()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tSIZE\tORIGIN\tKIND")
			for _, d := range displays {
				kind := "monitor"
				switch {
				case d.Virtual:
					kind = "virtual desktop"
				case d.Primary:
					kind = "primary"
				}
				fmt.Fprintf(w, "%d\t%dx%d\t%d,%d\t%s\n", d.Index, d.Width(), d.Height(), d.Bounds.Min.X, d.Bounds.Min.Y, kind)
			}
			return w.Flush()
		},
	}
}

func newProfilesCmd(f *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List template profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.config)
			if err != nil {
				return err
			}
			infos, err := profile.List(cfg.Profiles.ProfilesDir)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROFILE\tTEMPLATES\tACTIVE")
			for _, p := range infos {
				active := ""
				if p.Name == cfg.Profiles.ActiveProfile {
					active = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, p.Templates, active)
			}
			return w.Flush()
		},
	}
}

func newInitConfigCmd(f *runFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := os.Remove(f.config); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			created, err := config.WriteDefault(f.config, assets.DefaultConfigYAML)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("%s already exists (use --force to overwrite)", f.config)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.config)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newStatsCmd(f *runFlags) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted session statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.config)
			if err != nil {
				return err
			}
			st, err := stats.Open(cfg.Stats.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			return printStats(cmd.OutOrStdout(), st, recent)
		},
	}
	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "number of recent sessions to show")
	return cmd
}

func printStats(out io.Writer, st *stats.Store, n int) error {
	tot, err := st.Totals()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sessions %d  cycles %d  matches %d  clicks %d  errors %d\n\n",
		tot.Sessions, tot.Cycles, tot.Matches, tot.Clicks, tot.Errors)
	rows, err := st.Recent(n)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tPROFILE\tCYCLES\tMATCHES\tCLICKS\tERRORS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Format(time.DateTime), r.EndedAt.Sub(r.StartedAt).Round(time.Second),
			r.Profile, r.Cycles, r.Matches, r.Clicks, r.Errors)
	}
	return w.Flush()
}
