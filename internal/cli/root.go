// Package cli implements the shelf command-line interface.
package cli

import (
	"errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Version is reported by --version and the version command.
var Version = "0.1.0"

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
	metrics   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "shelf" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "shelf",
		Short: "A catalog for meme images with fuzzy search and remote sync",
		Long: `Shelf catalogs images together with their OCR text and descriptions,
sorts them into categories, finds them by fuzzy search, and keeps a snapshot
in sync with a WebDAV or S3 remote.`,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.metrics, "metrics", false, "print operation counters to stderr on exit")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newPurgeCmd())
	root.AddCommand(newRecategorizeCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newCategoryCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newSyncCmd())

	return root
}

// ExitCode maps an error returned by the root command to a process exit
// code: bad input is a user error, everything else a system error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrSchema), isNotFound(err):
		return exitUserError
	default:
		return exitSysError
	}
}

var errNotFound = errors.New("not found")
