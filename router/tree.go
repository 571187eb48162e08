package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/IntellionInc/logos"
	"github.com/IntellionInc/logos/dto"
	"github.com/IntellionInc/logos/schema"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Node is an *Endpoint or a *Group.
type Node interface {
	node()
}

// Endpoint binds an HTTP method to a controller action.
type Endpoint struct {
	Method     string
	Controller string
	Action     string
	opts       []EndpointOpt
}

// Group nests children under a path segment.
type Group struct {
	Path     string
	Children []Node
	opts     []EndpointOpt
}

func (*Endpoint) node() {}
func (*Group) node()    {}

// EndpointOpt adds behavior to the controllers an endpoint creates.
type EndpointOpt func(*binding)

type binding struct {
	authenticate bool
	validate     bool
	serialize    bool
	schema       *schema.Schema
	dtos         dto.Set
	errors       logos.ErrorDictionary
}

// Authenticated runs the controller's authentication protocol first.
func Authenticated() EndpointOpt {
	return func(b *binding) { b.authenticate = true }
}

// Validated runs the controller's validation protocol.
func Validated() EndpointOpt {
	return func(b *binding) { b.validate = true }
}

// Serialized shapes the result through s, or through the
// controller's own schema when s is nil.
func Serialized(s *schema.Schema) EndpointOpt {
	return func(b *binding) {
		b.serialize = true
		if s != nil {
			b.schema = s
		}
	}
}

// WithDTO attaches request DTOs.  It implies nothing about
// validation; combine with Validated.
func WithDTO(set dto.Set) EndpointOpt {
	return func(b *binding) { b.dtos = b.dtos.Merge(set) }
}

// WithErrors adds error translations for this endpoint.
func WithErrors(dict logos.ErrorDictionary) EndpointOpt {
	return func(b *binding) { b.errors = b.errors.Merge(dict) }
}

// Handle builds an endpoint for any HTTP method.
func Handle(method, controller, action string, opts ...EndpointOpt) *Endpoint {
	return &Endpoint{
		Method:     strings.ToUpper(method),
		Controller: controller,
		Action:     action,
		opts:       opts,
	}
}

func Get(controller, action string, opts ...EndpointOpt) *Endpoint {
	return Handle(http.MethodGet, controller, action, opts...)
}

func Post(controller, action string, opts ...EndpointOpt) *Endpoint {
	return Handle(http.MethodPost, controller, action, opts...)
}

func Put(controller, action string, opts ...EndpointOpt) *Endpoint {
	return Handle(http.MethodPut, controller, action, opts...)
}

func Patch(controller, action string, opts ...EndpointOpt) *Endpoint {
	return Handle(http.MethodPatch, controller, action, opts...)
}

func Delete(controller, action string, opts ...EndpointOpt) *Endpoint {
	return Handle(http.MethodDelete, controller, action, opts...)
}

// Under groups children under a path segment.  Segments of the form
// ":name" become path variables.
func Under(path string, children ...Node) *Group {
	return &Group{Path: path, Children: children}
}

// With adds options to every endpoint below g.  They apply before the
// endpoint's own options.
func (g *Group) With(opts ...EndpointOpt) *Group {
	g.opts = append(g.opts, opts...)
	return g
}

// With adds options to the endpoint.
func (e *Endpoint) With(opts ...EndpointOpt) *Endpoint {
	e.opts = append(e.opts, opts...)
	return e
}

// Target is the "Controller => action" form of the endpoint.
func (e *Endpoint) Target() string {
	return e.Controller + TargetSeparator + e.Action
}

// TargetSeparator splits controller and action in route tables.
const TargetSeparator = " => "

var tableMethods = map[string]string{
	"get":    http.MethodGet,
	"post":   http.MethodPost,
	"put":    http.MethodPut,
	"patch":  http.MethodPatch,
	"delete": http.MethodDelete,
}

// ParseTarget splits "Controller => action".
func ParseTarget(target string) (controller, action string, err error) {
	parts := strings.Split(target, TargetSeparator)
	if len(parts) != 2 {
		return "", "", errors.Errorf("route target %q is not of the form \"Controller => action\"", target)
	}
	controller, action = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if controller == "" || action == "" {
		return "", "", errors.Errorf("route target %q is missing a controller or an action", target)
	}
	return controller, action, nil
}

// ParseTable builds a tree from a nested route table.  Keys holding
// tables are path segments.  Keys holding strings must be one of get,
// post, put, patch or delete and the string is a "Controller =>
// action" target.  Keys are visited in sorted order.
func ParseTable(table map[string]any) (*Group, error) {
	return parseTable("", table)
}

func parseTable(path string, table map[string]any) (*Group, error) {
	g := Under(path)
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch v := table[key].(type) {
		case string:
			method, ok := tableMethods[strings.ToLower(key)]
			if !ok {
				return nil, errors.Errorf("route %s: %q is not an HTTP method", joinPath(path, ""), key)
			}
			controller, action, err := ParseTarget(v)
			if err != nil {
				return nil, errors.Wrapf(err, "route %s %s", method, joinPath(path, ""))
			}
			g.Children = append(g.Children, Handle(method, controller, action))
		case map[string]any:
			child, err := parseTable(key, v)
			if err != nil {
				return nil, errors.Wrapf(err, "under %s", path)
			}
			g.Children = append(g.Children, child)
		case map[string]string:
			nested := make(map[string]any, len(v))
			for k, s := range v {
				nested[k] = s
			}
			child, err := parseTable(key, nested)
			if err != nil {
				return nil, errors.Wrapf(err, "under %s", path)
			}
			g.Children = append(g.Children, child)
		default:
			return nil, errors.Errorf("route table entry %q has unsupported value %T", key, v)
		}
	}
	return g, nil
}

// LoadTable parses a YAML route table.
func LoadTable(data []byte) (*Group, error) {
	var table map[string]any
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "parse route table")
	}
	return ParseTable(table)
}

// joinPath appends a segment to a path, converting ":name" segments
// to gorilla/mux variables.
func joinPath(base, segment string) string {
	var parts []string
	for _, p := range strings.Split(base+"/"+segment, "/") {
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, ":") && len(p) > 1 {
			p = "{" + p[1:] + "}"
		}
		parts = append(parts, p)
	}
	return "/" + strings.Join(parts, "/")
}
