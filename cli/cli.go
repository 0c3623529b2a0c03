// Package cli provides the command-line interface of the WireGuard Manager.
// Every command re-reads the tunnel configuration, so the CLI can be mixed
// freely with manual edits of the file.
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/config"
	"github.com/yllada/wg-manager/history"
	"github.com/yllada/wg-manager/keyring"
	"github.com/yllada/wg-manager/vpn"
)

// VersionInfo carries the build metadata injected into main.
type VersionInfo struct {
	Version string
	Build   string
	Commit  string
}

// app holds the state shared by all commands of one invocation.
type app struct {
	settingsPath string
	verbose      bool
	logFile      bool
	version      VersionInfo

	settings *config.Settings
	manager  *vpn.Manager
	history  *history.Store

	// newManager builds the manager; tests replace it to inject fakes.
	newManager func(a *app, s *config.Settings) *vpn.Manager
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context, version VersionInfo) error {
	a := &app{version: version, newManager: defaultManager}
	defer a.close()
	return a.rootCommand().ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   common.CommandName,
		Short: "Manage the peers and service of a WireGuard tunnel.",
		Long: `wg-manager edits a WireGuard configuration file in place, keeping a .bak
copy of the previous version, and controls the tunnel service of the host.

Settings are read from ~/.config/wg-manager/settings.yaml.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose {
				common.GetLogger().SetLevel(common.LevelDebug)
			}
			if a.logFile {
				if err := common.GetLogger().EnableFileLogging(common.GetLogDir()); err != nil {
					common.LogWarn("Could not enable file logging: %v", err)
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "settings file (default is $HOME/.config/wg-manager/settings.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.logFile, "log-file", false, "also write logs to the log directory")

	root.AddCommand(
		a.peersCommand(),
		a.nextIPCommand(),
		a.serviceCommand(),
		a.statsCommand(),
		a.watchCommand(),
		a.topCommand(),
		a.settingsCommand(),
		a.historyCommand(),
		a.versionCommand(),
	)
	return root
}

// resolveSettingsPath returns the --settings value or the default location.
func (a *app) resolveSettingsPath() (string, error) {
	if a.settingsPath != "" {
		return a.settingsPath, nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", err
	}
	a.settingsPath = path
	return path, nil
}

// loadSettings reads the settings file once per invocation.
func (a *app) loadSettings() (*config.Settings, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	path, err := a.resolveSettingsPath()
	if err != nil {
		return nil, err
	}
	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	a.settings = s
	return s, nil
}

// getManager builds the tunnel manager on first use.
func (a *app) getManager(ctx context.Context) (*vpn.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}
	s, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	if s.HistoryEnabled && a.history == nil {
		a.openHistory(ctx)
	}
	a.manager = a.newManager(a, s)
	return a.manager, nil
}

// openHistory opens the history database next to the settings file. A
// failure only disables history.
func (a *app) openHistory(ctx context.Context) {
	path := filepath.Join(filepath.Dir(a.settingsPath), common.HistoryFileName)
	store, err := history.Open(ctx, path)
	if err != nil {
		common.LogWarn("History disabled: %v", err)
		return
	}
	a.history = store
}

func defaultManager(a *app, s *config.Settings) *vpn.Manager {
	opts := []vpn.Option{
		vpn.WithKeyStore(keyring.New(filepath.Dir(a.settingsPath))),
	}
	if a.history != nil {
		opts = append(opts, vpn.WithHistory(a.history))
	}
	return vpn.NewManager(s, opts...)
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			common.LogWarn("Failed to close history: %v", err)
		}
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s v%s\n", common.AppName, a.version.Version)
			if a.version.Build != "" && a.version.Build != "unknown" {
				fmt.Fprintf(out, "  Build:  %s\n", a.version.Build)
				fmt.Fprintf(out, "  Commit: %s\n", a.version.Commit)
			}
		},
	}
}
