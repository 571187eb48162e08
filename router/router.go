// Package router binds controller definitions to URLs.
//
// Routes are a tree of Groups and Endpoints, built directly or parsed
// from a nested route table such as
//
//	users:
//	  get: "Users => index"
//	  post: "Users => create"
//	  ":id":
//	    get: "Users => show"
//
// Mount checks every target against the known controllers and then
// registers one gorilla/mux route per endpoint.  Each request gets a
// fresh controller instance.
package router

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/IntellionInc/logos"
	"github.com/IntellionInc/logos/envelope"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Route is one flattened endpoint.
type Route struct {
	Method     string
	Path       string
	Controller string
	Action     string
	binding    binding
}

func (r Route) String() string {
	return fmt.Sprintf("%-6s %s -> %s%s%s", r.Method, r.Path, r.Controller, TargetSeparator, r.Action)
}

// Name is the gorilla/mux route name.
func (r Route) Name() string {
	return r.Controller + "." + r.Action
}

// Router turns a route tree into HTTP handlers.
type Router struct {
	root        Node
	controllers map[string]*logos.Definition
	decoder     *envelope.BodyDecoder
	log         envelope.BasicLogger
	requestLog  envelope.BasicLogger
	errors      logos.ErrorDictionary
	production  *bool
	resOpts     []envelope.ResponseOpt

	lock   sync.Mutex
	routes []Route
}

// Opt configures a Router.
type Opt func(*Router)

// WithLogger sets where request failures are reported.  Controllers
// created by the router log there too, instead of to the logger of
// their definition.
func WithLogger(log envelope.BasicLogger) Opt {
	return func(rt *Router) {
		if log == nil {
			return
		}
		rt.log = log
		rt.requestLog = log
	}
}

// WithDecoder replaces the default JSON and YAML body decoder.
func WithDecoder(d *envelope.BodyDecoder) Opt {
	return func(rt *Router) {
		rt.decoder = d
	}
}

// WithSharedErrors adds translations to every controller the router
// creates.  Endpoint translations win over shared ones.
func WithSharedErrors(dict logos.ErrorDictionary) Opt {
	return func(rt *Router) {
		rt.errors = rt.errors.Merge(dict)
	}
}

// InProduction overrides every controller's production flag.
func InProduction(production bool) Opt {
	return func(rt *Router) {
		rt.production = &production
	}
}

// WithResponseOptions are passed to envelope.NewResponse.
func WithResponseOptions(opts ...envelope.ResponseOpt) Opt {
	return func(rt *Router) {
		rt.resOpts = append(rt.resOpts, opts...)
	}
}

// Controllers indexes definitions by name.
func Controllers(defs ...*logos.Definition) map[string]*logos.Definition {
	m := make(map[string]*logos.Definition, len(defs))
	for _, d := range defs {
		m[d.Name()] = d
	}
	return m
}

// New creates a router for the tree.
func New(root Node, controllers map[string]*logos.Definition, opts ...Opt) *Router {
	rt := &Router{
		root:        root,
		controllers: controllers,
		decoder:     envelope.NewBodyDecoder(),
		log:         envelope.NoLogger(),
		errors:      logos.ErrorDictionary{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.resOpts = append([]envelope.ResponseOpt{envelope.WithLogger(rt.log)}, rt.resOpts...)
	return rt
}

// Routes lists the endpoints, sorted by path and then method.
func (rt *Router) Routes() []Route {
	var routes []Route
	flatten(rt.root, "", nil, &routes)
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

func flatten(n Node, base string, inherited []EndpointOpt, routes *[]Route) {
	switch v := n.(type) {
	case *Group:
		path := joinPath(base, v.Path)
		opts := append(append([]EndpointOpt{}, inherited...), v.opts...)
		for _, child := range v.Children {
			flatten(child, path, opts, routes)
		}
	case *Endpoint:
		var b binding
		for _, opt := range inherited {
			opt(&b)
		}
		for _, opt := range v.opts {
			opt(&b)
		}
		*routes = append(*routes, Route{
			Method:     v.Method,
			Path:       joinPath(base, ""),
			Controller: v.Controller,
			Action:     v.Action,
			binding:    b,
		})
	}
}

// Check verifies that every route names a known controller and one of
// its methods, and that no method and path pair repeats.
func (rt *Router) Check() error {
	var err error
	seen := make(map[string]bool)
	for _, route := range rt.Routes() {
		key := route.Method + " " + route.Path
		if seen[key] {
			err = multierr.Append(err, errors.Errorf("%s is bound twice", key))
		}
		seen[key] = true
		def, ok := rt.controllers[route.Controller]
		if !ok {
			err = multierr.Append(err, errors.Errorf("%s: unknown controller %q", key, route.Controller))
			continue
		}
		if !def.HasMethod(route.Action) {
			err = multierr.Append(err, errors.Errorf("%s: controller %s has no method %q", key, route.Controller, route.Action))
		}
	}
	return err
}

// Mount registers every route on m.  Nothing is registered when Check
// fails.
func (rt *Router) Mount(m *mux.Router) error {
	if err := rt.Check(); err != nil {
		return err
	}
	routes := rt.Routes()
	for _, route := range routes {
		r := m.HandleFunc(route.Path, rt.serve(route)).Methods(route.Method).Name(route.Name())
		if err := r.GetError(); err != nil {
			return errors.Wrapf(err, "bind %s", route)
		}
	}
	rt.lock.Lock()
	rt.routes = append(rt.routes, routes...)
	rt.lock.Unlock()
	return nil
}

// Mounted lists the routes registered by Mount.
func (rt *Router) Mounted() []Route {
	rt.lock.Lock()
	defer rt.lock.Unlock()
	return append([]Route(nil), rt.routes...)
}

// Handler mounts the routes on a new gorilla/mux router whose not
// found and method not allowed responses use the controller payload.
func (rt *Router) Handler() (*mux.Router, error) {
	m := mux.NewRouter()
	m.NotFoundHandler = rt.NotFoundHandler()
	m.MethodNotAllowedHandler = rt.MethodNotAllowedHandler()
	if err := rt.Mount(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NotFoundHandler answers 404 with the controller payload.
func (rt *Router) NotFoundHandler() http.Handler {
	return rt.failure(http.StatusNotFound, "Not Found")
}

// MethodNotAllowedHandler answers 405 with the controller payload.
func (rt *Router) MethodNotAllowedHandler() http.Handler {
	return rt.failure(http.StatusMethodNotAllowed, "Method Not Allowed")
}

func (rt *Router) failure(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.send(w, r, status, message)
	})
}

func (rt *Router) send(w http.ResponseWriter, r *http.Request, status int, message string) {
	res := envelope.NewResponse(w, r, rt.resOpts...)
	res.Status(status)
	err := res.Send(logos.Payload{
		Status: status,
		Meta:   map[string]any{},
		Error:  message,
	})
	if err != nil {
		rt.log.Warn("Cannot send response", map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
	}
}

func (rt *Router) serve(route Route) http.HandlerFunc {
	def := rt.controllers[route.Controller]
	b := route.binding
	opts := []logos.Option{
		logos.WithInstanceErrors(rt.errors.Merge(b.errors)),
		logos.WithRequestDTOs(b.dtos),
	}
	if rt.requestLog != nil {
		opts = append(opts, logos.WithRequestLogger(rt.requestLog))
	}
	if rt.production != nil {
		opts = append(opts, logos.WithProduction(*rt.production))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := rt.decoder.Decode(r)
		if err != nil {
			rt.log.Warn("Cannot decode request body", map[string]interface{}{
				"route": route.String(),
				"error": err.Error(),
			})
			rt.send(w, r, envelope.GetReturnCode(err), err.Error())
			return
		}
		req := logos.NewRequest(r, body, mux.Vars(r))
		c := def.New(req, envelope.NewResponse(w, r, rt.resOpts...), opts...).Controls(route.Action)
		if b.authenticate {
			c.Authenticates()
		}
		if b.validate {
			c.Validates()
		}
		if b.serialize {
			c.Serializes(b.schema)
		}
		if err := c.Exec(r.Context()); err != nil {
			rt.log.Error("Controller could not respond", map[string]interface{}{
				"route": route.String(),
				"error": err.Error(),
			})
		}
	}
}
