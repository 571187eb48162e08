package cli

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/IntellionInc/logos"
	"github.com/IntellionInc/logos/communicator"
	"github.com/IntellionInc/logos/connection"
	"github.com/IntellionInc/logos/ltype"
	"github.com/IntellionInc/logos/router"
	"github.com/IntellionInc/logos/schema"

	"github.com/dustin/go-humanize"
)

// HealthController is the name health routes refer to.
const HealthController = "Health"

var healthReport = schema.New("healthReport",
	schema.Field("status", ltype.Enum("ok", "degraded")),
	schema.Field("checks", ltype.Array),
	schema.Computed("started", func(_ context.Context, r map[string]any) (any, error) {
		started, _ := r["started"].(time.Time)
		return humanize.Time(started), nil
	}),
)

type check struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Up    bool   `json:"up"`
	Error string `json:"error,omitempty"`
}

// Health reports on the server's databases and outbound services.
func Health(conns *connection.Manager, outbound map[string]*communicator.Communicator) *logos.Definition {
	started := time.Now()
	report := func(checks []check) map[string]any {
		status := "ok"
		list := make([]any, len(checks))
		for i, c := range checks {
			if !c.Up {
				status = "degraded"
			}
			list[i] = c
		}
		return map[string]any{"status": status, "checks": list, "started": started}
	}
	return logos.Define(HealthController,
		logos.WithErrors(logos.ErrorDictionary{
			"Degraded": logos.Known(http.StatusServiceUnavailable, ""),
		}),
		logos.WithSerializer(healthReport),
		logos.Method("check", func(ctx context.Context, _ *logos.Controller) (any, error) {
			var checks []check
			for _, name := range conns.Names() {
				c := check{Name: name, Kind: "database", Up: true}
				db, err := conns.Get(name)
				if err == nil {
					err = db.PingContext(ctx)
				}
				if err != nil {
					c.Up, c.Error = false, err.Error()
				}
				checks = append(checks, c)
			}
			return report(checks), nil
		}),
		logos.Method("dependencies", func(ctx context.Context, _ *logos.Controller) (any, error) {
			names := make([]string, 0, len(outbound))
			for name := range outbound {
				names = append(names, name)
			}
			sort.Strings(names)
			checks := make([]check, 0, len(names))
			for _, name := range names {
				c := check{Name: name, Kind: "outbound", Up: true}
				if _, err := outbound[name].Get(ctx, "", nil); err != nil {
					c.Up, c.Error = false, err.Error()
				}
				checks = append(checks, c)
			}
			r := report(checks)
			if r["status"] != "ok" {
				return nil, logos.NewError("Degraded", "some dependencies are unavailable")
			}
			return r, nil
		}),
	)
}

// HealthRoutes serves Health under /health.
func HealthRoutes() *router.Group {
	return router.Under("health",
		router.Get(HealthController, "check", router.Serialized(nil)),
		router.Under("dependencies",
			router.Get(HealthController, "dependencies", router.Serialized(nil)),
		),
	)
}
