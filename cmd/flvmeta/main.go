package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/autobrr/go-flvmeta/internal/cli"
	"github.com/autobrr/go-flvmeta/internal/flvmeta"
)

var version = "dev"

const repoSlug = "autobrr/go-flvmeta"

const helpBanner = "" +
	"  __ _                      _        \n" +
	" / _| |_   ___ __ ___   ___| |_ __ _ \n" +
	"| |_| \\ \\ / / '_ ` _ \\ / _ \\ __/ _` |\n" +
	"|  _| |\\ V /| | | | | |  __/ || (_| |\n" +
	"|_| |_| \\_/ |_| |_| |_|\\___|\\__\\__,_|"

const helpTemplate = helpBanner + `

{{with or .Long .Short}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`

var opts cli.Options

var rootCmd = &cobra.Command{
	Use:           "flvmeta",
	Short:         "Inject computed onMetaData into FLV files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var updateCmd = &cobra.Command{
	Use:   "update [flags] <in.flv> [out.flv]",
	Short: "Compute and inject metadata",
	Long:  cli.UpdateLong,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.Update(&opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

var (
	dumpFormat   string
	dumpComputed bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <file.flv> [file.flv...]",
	Short: "Print the onMetaData tag of FLV files",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.Dump(&opts, dumpFormat, dumpComputed, args, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <dir>",
	Short: "Update FLV files in a directory as they are written",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		code := cli.Watch(ctx, &opts, args[0], cmd.ErrOrStderr())
		stop()
		os.Exit(code)
	},
}

var policyCmd = &cobra.Command{
	Use:   "policies",
	Short: "Describe truncation policies and exit codes",
	Run: func(cmd *cobra.Command, _ []string) {
		cli.HelpPolicy(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout())
		cli.HelpExitCodes(cmd.OutOrStdout())
	},
	DisableFlagsInUseLine: true,
}

var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Update flvmeta",
	Long:  "Update flvmeta to latest version (release builds only).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSelfUpdate(cmd.Context())
	},
	DisableFlagsInUseLine: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print go-flvmeta version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli.Version(cmd.OutOrStdout())
		return nil
	},
	DisableFlagsInUseLine: true,
}

func init() {
	resolvedVersion := resolveVersion()
	cli.SetVersion(resolvedVersion)
	flvmeta.SetAppVersion(resolvedVersion)

	opts.Bind(rootCmd.PersistentFlags())
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "output format: text, json or yaml")
	dumpCmd.Flags().BoolVar(&dumpComputed, "computed", false, "show the metadata update would write instead of the stored one")

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SetHelpTemplate(helpTemplate)
	rootCmd.AddCommand(updateCmd, dumpCmd, watchCmd, policyCmd, selfUpdateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runSelfUpdate(ctx context.Context) error {
	if version == "" || version == "dev" {
		return errors.New("self-update is only available in release builds")
	}

	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repoSlug))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s/%s could not be found from github repository", repoSlug, version)
	}

	if latest.LessOrEqual(version) {
		fmt.Printf("Current binary is the latest version: %s\n", flvmeta.FormatVersion(version))
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Printf("Successfully updated to version: %s\n", flvmeta.FormatVersion(latest.Version()))
	return nil
}

func resolveVersion() string {
	if version != "" && version != "dev" {
		return normalizeVersion(version)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return normalizeVersion(info.Main.Version)
		}
	}
	return "dev"
}

func normalizeVersion(value string) string {
	return strings.TrimPrefix(value, "v")
}
