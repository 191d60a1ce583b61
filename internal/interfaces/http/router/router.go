package router

import (
	"github.com/gin-gonic/gin"
)

// Endpoint is one handler chain bound to a method and path
type Endpoint struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// Handle builds an Endpoint
func Handle(method, path string, handlers ...gin.HandlerFunc) Endpoint {
	return Endpoint{Method: method, Path: path, Handlers: handlers}
}

// Group is a resource mounted below the versioned prefix. Its middleware
// runs for its own endpoints and those of its subgroups.
type Group struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Endpoints  []Endpoint
	Subgroups  []Group
}

// Route describes one mounted endpoint
type Route struct {
	Group  string
	Method string
	Path   string
}

// Router mounts groups under /api/<version>
type Router struct {
	api    *gin.RouterGroup
	prefix string
}

// NewRouter creates the versioned group on engine. middleware applies to
// every route mounted through the Router and to nothing else on engine.
func NewRouter(engine *gin.Engine, version string, middleware ...gin.HandlerFunc) *Router {
	if version == "" {
		version = "v1"
	}
	prefix := "/api/" + version
	api := engine.Group(prefix)
	if len(middleware) > 0 {
		api.Use(middleware...)
	}
	return &Router{api: api, prefix: prefix}
}

// Prefix returns the versioned path prefix, e.g. "/api/v1"
func (r *Router) Prefix() string {
	return r.prefix
}

// Mount registers groups and returns the routes they added, in order
func (r *Router) Mount(groups ...Group) []Route {
	var routes []Route
	for _, g := range groups {
		routes = append(routes, mount(r.api, r.prefix, g)...)
	}
	return routes
}

func mount(parent *gin.RouterGroup, base string, g Group) []Route {
	rg := parent.Group(g.Prefix, g.Middleware...)
	path := base + g.Prefix

	routes := make([]Route, 0, len(g.Endpoints))
	for _, e := range g.Endpoints {
		rg.Handle(e.Method, e.Path, e.Handlers...)
		routes = append(routes, Route{Group: g.Name, Method: e.Method, Path: path + e.Path})
	}
	for _, sub := range g.Subgroups {
		routes = append(routes, mount(rg, path, sub)...)
	}
	return routes
}
