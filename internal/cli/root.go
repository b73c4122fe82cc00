package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"repoclone/internal/config"
	"repoclone/internal/errkind"
	"repoclone/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

const rootLong = `repoclone clones every repository of a GitHub user or organization into a
local directory, a few at a time.

Repositories that already exist locally are skipped, so running it again
resumes an interrupted run or picks up repositories created since.

Examples:
	# Show available commands and global flags
	repoclone --help

	# Clone up to 25 repositories of an organization into the current directory
	repoclone clone my-org

	# Print build info
	repoclone version`

func newRootCmd() *cobra.Command {
	cfg := config.New()

	root := &cobra.Command{
		Use:           "repoclone",
		Short:         "Bulk-clone the repositories of a GitHub user or organization",
		Long:          rootLong,
		Version:       fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call and git command)")

	root.AddCommand(newCloneCmd(cfg), newVersionCmd())
	return root
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// ExecuteArgs runs the command line args and returns the process exit code.
// This is the only place an error becomes an exit status.
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		reportError(stderr, cmd, err)
	}
	return errkind.ExitCode(err)
}

func Execute() {
	os.Exit(ExecuteArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func reportError(w io.Writer, cmd *cobra.Command, err error) {
	fmt.Fprintf(w, "%s %v\n", color.RedString("Error:"), err)
	if hint := errkind.Hint(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
	path := "repoclone"
	if cmd != nil {
		path = cmd.CommandPath()
	}
	fmt.Fprintf(w, "Run '%s --help' for usage.\n", path)
}
