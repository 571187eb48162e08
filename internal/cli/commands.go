package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IntellionInc/logos"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions, controllers []*logos.Definition) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load(cmd, opts, controllers)
			if err != nil {
				return err
			}
			if err := app.Server.UseRouter(app.Router); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Server.Serve(ctx)
		},
	}
}

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(opts *RootOptions, controllers []*logos.Definition) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load(cmd, opts, controllers)
			if err != nil {
				return err
			}
			for _, r := range app.Router.Routes() {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			if check {
				return app.Router.Check()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "fail when a route names an unknown controller or method")
	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "logos %s\n", Version)
		},
	}
}
