package rpc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

// MountPath is where routers are served
const MountPath = "/api/rpc"

const maxBodyBytes = 1 << 20

// Empty is the input of procedures that take none
type Empty struct{}

// Envelope is the success response body
type Envelope struct {
	Result Result `json:"result"`
}

// Result wraps procedure output
type Result struct {
	Data interface{} `json:"data"`
}

// Endpoint is a procedure bound to its handler
type Endpoint struct {
	method  string
	handler HandlerFunc
}

// Method is GET for queries and POST for mutations
func (e Endpoint) Method() string {
	return e.method
}

// Query builds a read-only endpoint. Input arrives JSON-encoded in the
// "input" query parameter.
func Query[In, Out any](p Procedure, fn func(ctx context.Context, in In) (Out, error)) Endpoint {
	return newEndpoint(http.MethodGet, p, fn)
}

// Mutation builds a state-changing endpoint. Input arrives as the JSON body.
func Mutation[In, Out any](p Procedure, fn func(ctx context.Context, in In) (Out, error)) Endpoint {
	return newEndpoint(http.MethodPost, p, fn)
}

func newEndpoint[In, Out any](method string, p Procedure, fn func(ctx context.Context, in In) (Out, error)) Endpoint {
	validator := p.validator
	if validator == nil {
		validator = NewValidator()
	}

	h := func(ctx context.Context, call *Call) (interface{}, error) {
		var in In
		if err := decodeInput(call.Request, method, &in); err != nil {
			return nil, err
		}
		if err := validator.Validate(in); err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}

	return Endpoint{method: method, handler: p.wrap(h)}
}

func decodeInput(r *http.Request, method string, dst interface{}) error {
	var raw []byte
	if method == http.MethodGet {
		raw = []byte(r.URL.Query().Get("input"))
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return errors.NewBadRequestError("Failed to read request body")
		}
		if len(body) > maxBodyBytes {
			return errors.NewBadRequestError("Request body too large")
		}
		raw = body
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return errors.NewValidationErrors([]errors.ValidationError{{
				Field:   typeErr.Field,
				Tag:     "type",
				Message: typeErr.Field + " must be a " + typeErr.Type.String(),
			}})
		}
		return errors.NewBadRequestError("Malformed JSON input")
	}
	return nil
}

// Router groups procedures under a name
type Router struct {
	name       string
	procedures map[string]Endpoint
}

// NewRouter creates an empty router
func NewRouter(name string) *Router {
	return &Router{name: name, procedures: make(map[string]Endpoint)}
}

// Name returns the router's name
func (r *Router) Name() string {
	return r.name
}

// Procedure registers an endpoint and returns the router for chaining
func (r *Router) Procedure(name string, e Endpoint) *Router {
	if _, dup := r.procedures[name]; dup {
		panic("rpc: duplicate procedure " + r.name + "." + name)
	}
	r.procedures[name] = e
	return r
}

// Paths lists the full procedure paths in sorted order
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.procedures))
	for name := range r.procedures {
		paths = append(paths, r.name+"."+name)
	}
	sort.Strings(paths)
	return paths
}

// Mount registers every procedure of routers on mux under MountPath
func (b *Builder) Mount(mux chi.Router, routers ...*Router) {
	for _, router := range routers {
		for name, e := range router.procedures {
			path := router.name + "." + name
			mux.Method(e.method, MountPath+"/"+path, b.serve(path, e))
		}
		b.logger.Debug("Mounted router", zap.String("router", router.name), zap.Int("procedures", len(router.procedures)))
	}
}

// serve adapts an endpoint to net/http. The session is resolved up front and
// is optional here; Auth in the chain decides whether it is required.
func (b *Builder) serve(path string, e Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		call := &Call{Procedure: path, Request: r, Header: w.Header()}

		if id, ok := middleware.IdentityFrom(ctx); ok {
			call.Identity = id
		} else if b.sessions != nil {
			id, err := b.sessions.Resolve(ctx, r)
			if err != nil {
				b.logger.Debug("Ignoring invalid session", zap.String("procedure", path), zap.Error(err))
			}
			if id != nil {
				call.Identity = id
				ctx = middleware.WithIdentity(ctx, id)
			}
		}

		out, err := e.handler(ctx, call)
		if err != nil {
			middleware.WriteError(w, r, errors.Wrap(err, "An unexpected error occurred"))
			return
		}
		middleware.WriteJSON(w, http.StatusOK, Envelope{Result: Result{Data: out}})
	})
}
