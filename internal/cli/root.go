package cli

import (
	"log"

	"github.com/IntellionInc/logos"
	"github.com/IntellionInc/logos/config"
	"github.com/IntellionInc/logos/envelope"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the logos command.  controllers are served
// in addition to the health controller.
func NewRootCommand(controllers ...*logos.Definition) *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:           "logos",
		Short:         "Run a logos service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output")

	cmd.AddCommand(NewServeCommand(opts, controllers))
	cmd.AddCommand(NewRoutesCommand(opts, controllers))
	cmd.AddCommand(NewVersionCommand())
	return cmd
}

func load(cmd *cobra.Command, opts *RootOptions, controllers []*logos.Definition) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	std := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	return Build(cfg, envelope.LoggerFromStd(std, opts.Verbose || cfg.Debug), controllers...)
}
