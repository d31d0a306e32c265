package server

import (
	"net/http"
	"slices"
)

// BasicRouter registers method-qualified patterns ("GET /api/state") on an [http.ServeMux],
// so unknown methods get a 405 with an Allow header from the mux itself.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	patterns    []string
}

func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added is the outermost.
// Only handlers registered after the call are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.register(method+" "+path, handler)
}

// Handler registers every pattern from [Handler.Routes]; the handler checks methods itself.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.register(route, handler)
	}
}

func (r *BasicRouter) register(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.wrap(handler))
	r.patterns = append(r.patterns, pattern)
}

func (r *BasicRouter) wrap(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(r.middlewares) {
		handler = mw(handler)
	}
	return handler
}

// Patterns lists the registered patterns in registration order.
func (r *BasicRouter) Patterns() []string {
	return slices.Clone(r.patterns)
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
