// Package main is the entry point for the hostjob CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/flemzord/hostjob/internal/config"
	"github.com/flemzord/hostjob/internal/core"
	"github.com/flemzord/hostjob/internal/daemon"
	"github.com/flemzord/hostjob/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const serviceName = "hostjob"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hostjob",
		Short:         "Run guarded background jobs under a managed lifecycle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), runCmd(), configCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled job kinds",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("hostjob %s (commit: %s, built: %s)\n", version, commit, date)
			kinds := core.GetKinds()
			if len(kinds) == 0 {
				fmt.Println("\nNo compiled job kinds.")
				return
			}
			fmt.Println("\nCompiled job kinds:")
			for _, k := range kinds {
				fmt.Printf("  %s\n", k.Kind)
			}
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start all configured jobs and block until stopped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			params := app.RunParams{ConfigPath: cfgPath, DataDir: dataDir}

			if daemon.Interactive() {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return app.Run(ctx, params)
			}

			// Under a service manager: the manager drives start and stop.
			prog := daemon.NewProgram(func(ctx context.Context) error {
				return app.Run(ctx, params)
			}, 0, nil)
			svc, err := daemon.New(serviceConfig(cfgPath), prog)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("data-dir", "", "Override the data directory")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(args[0])
			if err != nil {
				return err
			}

			jobs := config.Enabled(cfg.Jobs)
			fmt.Printf("Configuration OK (%d jobs)\n", len(jobs))
			for _, j := range jobs {
				fmt.Printf("  %s (%s)\n", j.Name, j.Kind)
			}
			return nil
		},
	})
	return cmd
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service <" + strings.Join(daemon.Actions(), "|") + ">",
		Short:     "Manage hostjob as an OS service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: daemon.Actions(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := config.ResolvePath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}
			if abs, err := filepath.Abs(cfgPath); err == nil {
				cfgPath = abs
			}

			svc, err := daemon.New(serviceConfig(cfgPath), daemon.NewProgram(nil, 0, nil))
			if err != nil {
				return err
			}
			if err := daemon.Control(svc, args[0]); err != nil {
				return err
			}
			fmt.Printf("service %s: %s done\n", serviceName, args[0])
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func serviceConfig(cfgPath string) daemon.Config {
	var args []string
	if cfgPath != "" {
		args = []string{"run", "--config", cfgPath}
	} else {
		args = []string{"run"}
	}
	return daemon.Config{
		Name:        serviceName,
		DisplayName: "hostjob",
		Description: "Runs guarded background jobs.",
		Arguments:   args,
	}
}
