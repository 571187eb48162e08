package cli

import (
	"os"
	"sort"

	"github.com/IntellionInc/logos"
	"github.com/IntellionInc/logos/communicator"
	"github.com/IntellionInc/logos/config"
	"github.com/IntellionInc/logos/envelope"
	"github.com/IntellionInc/logos/router"
	"github.com/IntellionInc/logos/server"

	"github.com/pkg/errors"
)

// App is a configured server with its routes.
type App struct {
	Config   config.Config
	Server   *server.Server
	Router   *router.Router
	Outbound map[string]*communicator.Communicator
}

// Build wires a server from cfg.  The health routes are always
// present; cfg.Routes may name a YAML route table for controllers.
func Build(cfg config.Config, log envelope.BasicLogger, controllers ...*logos.Definition) (*App, error) {
	srv := server.New(
		server.WithPort(cfg.Port),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithLogger(log),
	)
	names := make([]string, 0, len(cfg.Databases))
	for name := range cfg.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := srv.UseDatabase(name, cfg.Databases[name]); err != nil {
			return nil, err
		}
	}

	outbound := make(map[string]*communicator.Communicator, len(cfg.Outbound))
	for name, oc := range cfg.Outbound {
		c, err := communicator.New(oc, nil, communicator.WithLogger(log))
		if err != nil {
			return nil, errors.Wrapf(err, "outbound %s", name)
		}
		outbound[name] = c
	}

	tree := router.Under("", HealthRoutes())
	if cfg.Routes != "" {
		data, err := os.ReadFile(cfg.Routes)
		if err != nil {
			return nil, errors.Wrap(err, "read routes")
		}
		table, err := router.LoadTable(data)
		if err != nil {
			return nil, errors.Wrapf(err, "routes %s", cfg.Routes)
		}
		tree.Children = append(tree.Children, table)
	}
	defs := append([]*logos.Definition{Health(srv.Connections(), outbound)}, controllers...)
	rt := router.New(tree, router.Controllers(defs...),
		router.WithLogger(log),
		router.InProduction(cfg.Production()),
	)
	return &App{
		Config:   cfg,
		Server:   srv,
		Router:   rt,
		Outbound: outbound,
	}, nil
}
