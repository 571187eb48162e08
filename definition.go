package logos

import (
	"context"
	"sort"
	"sync"

	"github.com/IntellionInc/logos/dto"
	"github.com/IntellionInc/logos/envelope"
	"github.com/IntellionInc/logos/schema"
)

// HandlerFunc is a controller method.  Its result becomes the
// controller's data; an error is translated through the error
// dictionaries.
type HandlerFunc func(ctx context.Context, c *Controller) (any, error)

// Definition describes a controller class: its methods and the
// defaults every instance starts with.  A Definition is safe for
// concurrent use once requests are flowing; AssignErrors may still be
// called.
type Definition struct {
	name         string
	lock         sync.RWMutex
	methods      map[string]HandlerFunc
	errors       ErrorDictionary
	interceptors []InterceptorFactory
	auth         Protocol
	validation   Protocol
	serializer   *schema.Schema
	dtos         dto.Set
	log          envelope.BasicLogger
	production   bool
}

// DefinitionOpt configures a Definition.
type DefinitionOpt func(*Definition)

// Method adds a named handler.
func Method(name string, h HandlerFunc) DefinitionOpt {
	return func(d *Definition) {
		d.methods[name] = h
	}
}

// WithAuthProtocol replaces the default authentication protocol, which
// always succeeds.
func WithAuthProtocol(p Protocol) DefinitionOpt {
	return func(d *Definition) {
		d.auth = p
	}
}

// WithValidationProtocol replaces the default validation protocol,
// which validates the controller's DTOs.
func WithValidationProtocol(p Protocol) DefinitionOpt {
	return func(d *Definition) {
		d.validation = p
	}
}

// WithSerializer sets the schema every instance serializes through.
func WithSerializer(s *schema.Schema) DefinitionOpt {
	return func(d *Definition) {
		d.serializer = s
	}
}

// WithDTOs sets the DTOs every instance validates against.
func WithDTOs(set dto.Set) DefinitionOpt {
	return func(d *Definition) {
		d.dtos = set
	}
}

// WithErrors adds class level error translations.
func WithErrors(dict ErrorDictionary) DefinitionOpt {
	return func(d *Definition) {
		d.errors = d.errors.Merge(dict)
	}
}

// WithInterceptors adds interceptors that run, in order, ahead of any
// added per request.
func WithInterceptors(factories ...InterceptorFactory) DefinitionOpt {
	return func(d *Definition) {
		d.interceptors = append(d.interceptors, factories...)
	}
}

// WithLogger sets the logger instances report failures to.
func WithLogger(log envelope.BasicLogger) DefinitionOpt {
	return func(d *Definition) {
		d.log = log
	}
}

// InProduction hides stack traces from failure payloads.
func InProduction(production bool) DefinitionOpt {
	return func(d *Definition) {
		d.production = production
	}
}

// Define creates a controller definition.
func Define(name string, opts ...DefinitionOpt) *Definition {
	d := &Definition{
		name:    name,
		methods: make(map[string]HandlerFunc),
		errors:  ErrorDictionary{},
		log:     envelope.NoLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name is the controller's name as used in route tables.
func (d *Definition) Name() string { return d.name }

// Handle adds or replaces a method.
func (d *Definition) Handle(name string, h HandlerFunc) *Definition {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.methods[name] = h
	return d
}

// HasMethod reports whether name is a method of the controller.
func (d *Definition) HasMethod(name string) bool {
	_, ok := d.method(name)
	return ok
}

// Methods lists the method names, sorted.
func (d *Definition) Methods() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Definition) method(name string) (HandlerFunc, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	h, ok := d.methods[name]
	return h, ok
}

// AssignErrors adds translations to the class dictionary.  Existing
// names are overwritten, others are kept.
func (d *Definition) AssignErrors(dict ErrorDictionary) *Definition {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.errors = d.errors.Merge(dict)
	return d
}

func (d *Definition) lookupError(name string) (ErrorFactory, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	f, ok := d.errors[name]
	return f, ok
}

func (d *Definition) authProtocol() Protocol {
	if d.auth != nil {
		return d.auth
	}
	return func(context.Context, *Controller) Outcome {
		return Succeed("Default Auth Protocol")
	}
}

func (d *Definition) validationProtocol() Protocol {
	if d.validation != nil {
		return d.validation
	}
	return ValidateDTOs
}

// ValidateDTOs is the default validation protocol: the request parts
// are checked against the controller's DTOs.
func ValidateDTOs(_ context.Context, c *Controller) Outcome {
	ok, err := c.dtos.Validate(c.request.Parts())
	if !ok {
		return Fail(err)
	}
	return Succeed(nil)
}

// New creates a controller instance for one request.
func (d *Definition) New(req *Request, res Responder, opts ...Option) *Controller {
	return newController(d, req, res, opts)
}
