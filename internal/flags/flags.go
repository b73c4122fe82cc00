package flags

// Package flags defines canonical CLI flag names shared by the Cobra wiring and
// the config-file overlay (a file value is applied only when the flag of the
// same name was not set on the command line).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.Owner, flags.FlagOwner, "", "...")
//	if !cmd.Flags().Changed(flags.FlagOwner) { ... }
const (
	// Targeting
	FlagOwner    = "owner"
	FlagDir      = "dir"
	FlagLimit    = "limit"
	FlagInclude  = "include"
	FlagExclude  = "exclude"
	FlagArchived = "archived"
	FlagForks    = "forks"
	FlagDryRun   = "dry-run"

	// Clone
	FlagDepth    = "depth"
	FlagProtocol = "protocol"

	// Auth
	FlagToken             = "token"
	FlagAppID             = "app-id"
	FlagAppInstallationID = "app-installation-id"
	FlagAppPrivateKey     = "app-private-key"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagMetricsFile   = "metrics-file"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagConfig      = "config"
	FlagVerbose     = "verbose"
)
