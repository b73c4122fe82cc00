package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"repoclone/internal/config"
	"repoclone/internal/engine"
	"repoclone/internal/errkind"
	"repoclone/internal/flags"
	"repoclone/internal/git"
	gh "repoclone/internal/github"
	"repoclone/internal/metrics"
	"repoclone/internal/output"
)

const cloneHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  GITHUB_TOKEN, GH_TOKEN   GitHub access token (after --token, before 'gh auth token')
  GITHUB_API_URL           API root for GitHub Enterprise Server (default: https://api.github.com)
  GITHUB_SERVER_URL        Git host for clone URLs (default: https://github.com)

  Without any token only public repositories are listed, under the
  unauthenticated rate limit.

  Token guidance (brief):
  - PAT (classic): repo (private repositories) and read:org.
  - Fine-grained PAT: Metadata: Read and Contents: Read on the repositories.
  - GitHub App: Metadata: Read and Contents: Read; pass --app-id,
    --app-installation-id and --app-private-key.
`

const cloneLong = `Clone the repositories of a GitHub user or organization.

The owner's repositories are listed (up to --limit, in GitHub's order),
compared against the directories under --dir, and every repository without a
directory of the same name is cloned with 'git clone', at most --concurrency
at a time. Existing directories are never touched.

A failed clone is reported and counted but does not stop the others.

Output:
	Console output is controlled by --console-format (default: text).
	- text: one line per finished clone, then a summary
	- ndjson: one JSON event per line with a "type" field
	  (run.started, repo.present, clone.planned, clone.finished, run.finished)
	--out writes an aggregate JSON report (.json) or the NDJSON event stream
	(.ndjson) to a file. --metrics-file writes Prometheus metrics in text
	format for the node exporter textfile collector.

Exit codes:
	0 = run completed (including when some clones failed or nothing was missing)
	1 = invalid configuration, git missing, or GitHub listing failed

Examples:
  # Clone up to 100 repositories of an organization into ./my-org
  repoclone clone my-org --dir ./my-org --limit 100

  # Shallow clones over SSH, 10 at a time
  repoclone clone --owner octocat --depth 1 --protocol ssh --concurrency 10

  # Show what would be cloned
  repoclone clone my-org --dry-run

  # Settings from a file, flags win
  repoclone clone --config repoclone.yaml --limit 500
`

func newCloneCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone [owner]",
		Short: "Clone every repository of a GitHub user or organization",
		Long:  cloneLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && cmd.Flags().NFlag() == 0 {
				return cmd.Help()
			}
			return runClone(cmd, cfg, args)
		},
	}
	cmd.SetHelpTemplate(cloneHelpTemplate)

	// MAINTAINER NOTE: keep these in sync with config.File when adding flags
	// that make sense in a config file.

	// Targeting
	cmd.Flags().StringVar(&cfg.Targeting.Owner, flags.FlagOwner, "", "GitHub user or organization to clone (name or URL); may also be given as the argument")
	cmd.Flags().StringVar(&cfg.Targeting.Dir, flags.FlagDir, "", "Directory to clone into (default: current directory)")
	cmd.Flags().IntVar(&cfg.Targeting.Limit, flags.FlagLimit, config.DefaultLimit, "Maximum number of repositories to list")
	cmd.Flags().StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Only clone repositories whose name matches a pattern (repeatable; comma-separated accepted; Go path.Match style)")
	cmd.Flags().StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Skip repositories whose name matches a pattern (repeatable; comma-separated accepted)")
	cmd.Flags().StringVar(&cfg.Targeting.Archived, flags.FlagArchived, "include", "Archived repos policy: include|exclude|only")
	cmd.Flags().StringVar(&cfg.Targeting.Forks, flags.FlagForks, "include", "Forks policy: include|exclude|only")
	cmd.Flags().BoolVar(&cfg.Targeting.DryRun, flags.FlagDryRun, false, "List and compare, print the plan, clone nothing")

	// Clone
	cmd.Flags().IntVar(&cfg.Clone.Depth, flags.FlagDepth, 0, "Limit history to this many commits (0 = full history)")
	cmd.Flags().StringVar(&cfg.Clone.Protocol, flags.FlagProtocol, "https", "Clone URL protocol: https|ssh")

	// Auth
	cmd.Flags().StringVar(&cfg.Auth.Token, flags.FlagToken, "", "GitHub access token (default: GITHUB_TOKEN, GH_TOKEN, then 'gh auth token')")
	cmd.Flags().StringVar(&cfg.Auth.AppID, flags.FlagAppID, "", "GitHub App ID (with --app-installation-id and --app-private-key)")
	cmd.Flags().StringVar(&cfg.Auth.AppInstallationID, flags.FlagAppInstallationID, "", "GitHub App installation ID")
	cmd.Flags().StringVar(&cfg.Auth.AppPrivateKey, flags.FlagAppPrivateKey, "", "Path to the GitHub App private key (PEM)")

	// Output
	cmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|ndjson")
	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringVar(&cfg.Output.MetricsFile, flags.FlagMetricsFile, "", "Write Prometheus metrics to this path when the run finishes")

	// Runtime
	cmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, config.DefaultConcurrency, "Clones allowed in flight at once")
	cmd.Flags().StringVar(&cfg.Runtime.ConfigFile, flags.FlagConfig, "", "YAML file with defaults for the flags above")

	return cmd
}

func runClone(cmd *cobra.Command, cfg *config.Config, args []string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if err := resolveConfig(cmd, cfg, args); err != nil {
		return err
	}

	gitPath := ""
	if !cfg.Targeting.DryRun {
		p, err := git.LookPath()
		if err != nil {
			return err
		}
		gitPath = p
	}

	apiURL, gitHost := forgeEndpoints()
	token, err := resolveToken(ctx, cfg, apiURL, stderr)
	if err != nil {
		return err
	}

	var clientOpts []gh.Option
	clientOpts = append(clientOpts, gh.WithVerbose(cfg.Runtime.Verbose, stderr))
	if apiURL != "" {
		clientOpts = append(clientOpts, gh.WithBaseURL(apiURL))
	}
	client, err := gh.NewClient(ctx, token, clientOpts...)
	if err != nil {
		return errkind.New(errkind.KindConfig, "create GitHub client", err)
	}

	outMgr, err := setupOutputManager(cfg, stdout)
	if err != nil {
		return errkind.New(errkind.KindConfig, "create output sinks", err)
	}

	var recorder *metrics.Recorder
	if cfg.Output.MetricsFile != "" {
		recorder = metrics.NewRecorder()
	}

	cloner := &git.Cloner{
		GitPath:  gitPath,
		Protocol: cfg.Clone.Protocol,
		Host:     gitHost,
		Token:    token,
	}
	if cfg.Runtime.Verbose {
		cloner.Log = stderr
	}

	eng := &engine.Engine{
		Lister:   &engine.GitHubLister{Client: client, Filter: engine.FilterFromConfig(cfg)},
		Cloner:   cloner,
		Out:      outMgr,
		Metrics:  recorder,
		Progress: stderr,
	}
	_, runErr := eng.Run(ctx, cfg)

	if err := outMgr.Close(); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	if runErr != nil {
		return runErr
	}
	if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		fmt.Fprintf(stderr, "Warning: failed to write metrics: %v\n", err)
	}
	return nil
}

// resolveConfig fills cfg from the positional owner and the config file, then
// validates it. Every failure here is a config error.
func resolveConfig(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if len(args) == 1 {
		arg := strings.TrimSpace(args[0])
		if cmd.Flags().Changed(flags.FlagOwner) && cfg.Targeting.Owner != arg {
			return errkind.New(errkind.KindConfig, "", fmt.Errorf("owner given twice: --owner %q and argument %q", cfg.Targeting.Owner, arg))
		}
		cfg.Targeting.Owner = arg
	}

	if cfg.Runtime.ConfigFile != "" {
		f, err := config.LoadFile(cfg.Runtime.ConfigFile)
		if err != nil {
			return errkind.New(errkind.KindConfig, "", err)
		}
		f.Apply(cfg, cmd.Flags().Changed)
	}

	if err := cfg.Validate(); err != nil {
		return errkind.New(errkind.KindConfig, "", err)
	}
	return nil
}

func resolveToken(ctx context.Context, cfg *config.Config, apiURL string, stderr io.Writer) (string, error) {
	if cfg.AppAuth() {
		tok, err := gh.AppInstallationToken(ctx, gh.AppCredentials{
			AppID:          cfg.Auth.AppID,
			InstallationID: cfg.Auth.AppInstallationID,
			PrivateKeyPath: cfg.Auth.AppPrivateKey,
			APIURL:         apiURL,
		})
		if err != nil {
			return "", errkind.New(errkind.KindAuth, "create GitHub App installation token", err)
		}
		if cfg.Runtime.Verbose {
			fmt.Fprintf(stderr, "[verbose] auth: %s (expires %s)\n", gh.AuthTokenSourceApp, tok.ExpiresAt.Format("15:04:05 MST"))
		}
		return tok.Token, nil
	}

	token, source, err := gh.ResolveAuthToken(ctx, cfg.Auth.Token)
	if err != nil {
		return "", errkind.New(errkind.KindAuth, "resolve GitHub auth token", err)
	}
	if token == "" {
		fmt.Fprintln(stderr, "No GitHub token found; listing public repositories only.")
		return "", nil
	}
	if cfg.Runtime.Verbose {
		fmt.Fprintf(stderr, "[verbose] auth: token from %s\n", source)
	}
	return token, nil
}

// forgeEndpoints reads the GitHub Enterprise overrides GitHub Actions also uses.
func forgeEndpoints() (apiURL, gitHost string) {
	apiURL = strings.TrimSpace(os.Getenv("GITHUB_API_URL"))
	if raw := strings.TrimSpace(os.Getenv("GITHUB_SERVER_URL")); raw != "" {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			gitHost = u.Host
		}
	}
	return apiURL, gitHost
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr, err := output.NewManager(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat))
	if err != nil {
		return nil, err
	}
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}
	return outMgr, nil
}
