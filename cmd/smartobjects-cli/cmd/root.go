package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	smartobjects "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"
	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/logging"
	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/secrets"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v          *viper.Viper
	configPath string
	verbose    bool

	settings *Settings
	logger   *logging.Logger

	fetcher   secrets.Fetcher
	newClient func(*smartobjects.Config) (*smartobjects.Client, error)
}

// Execute runs the CLI, cancelling in-flight requests on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{
		v:         viper.New(),
		fetcher:   secrets.NewAWSSecretsManagerFetcher(),
		newClient: smartobjects.NewClient,
	}

	rootCmd := &cobra.Command{
		Use:   "smartobjects-cli",
		Short: "SmartObjects datalake CLI",
		Long: `A command-line interface for the SmartObjects datalake.

The CLI manages datasets and their fields and ingests rows. Credentials are
read from a config file ($HOME/.smartobjects/smartobjects.yaml), SMARTOBJECTS_*
environment variables or flags. An OAuth client secret may be given as an
aws-sm://<secret-id>?region=<region>&field=<json-field> reference.`,
		Version:           smartobjects.Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file path")
	flags.String("base-url", "", "SmartObjects API base URL")
	flags.String("token", "", "Static access token (skips OAuth)")
	flags.StringP("output", "o", "table", "Output format (json, yaml, table)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("access_token", flags.Lookup("token"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))

	rootCmd.AddCommand(a.datasetCmd())
	rootCmd.AddCommand(a.fieldCmd())
	rootCmd.AddCommand(a.ingestCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	settings, err := LoadSettings(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.settings = settings

	level := settings.Logging.Level
	if a.verbose {
		level = "debug"
	}
	a.logger = logging.NewFromConfig(level, settings.Logging.Format)
	return nil
}

// client builds an SDK client from the loaded settings; callers close it.
func (a *app) client(cmd *cobra.Command) (*smartobjects.Client, error) {
	cfg, err := a.settings.SDKConfig(cmd.Context(), a.fetcher, a.logger)
	if err != nil {
		return nil, err
	}
	return a.newClient(cfg)
}

func (a *app) printer(cmd *cobra.Command) (*Printer, error) {
	return NewPrinter(cmd.OutOrStdout(), a.settings.Output)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "SmartObjects CLI v%s\n", smartobjects.Version)
		},
	}
}
