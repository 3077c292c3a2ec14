package services

import (
	"github.com/fyrsmithlabs/answerd/internal/assistant"
	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/resolver"
	"github.com/fyrsmithlabs/answerd/internal/secrets"
)

// Registry provides access to all answerd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Knowledge() *knowledge.Store
	Matcher() *matcher.Matcher
	Resolver() *resolver.Coordinator
	Session() *assistant.Session
	Profiles() *profile.Store
	Hooks() *hooks.HookManager
	Scrubber() secrets.Scrubber
}

// Options configures the registry with service instances.
type Options struct {
	Knowledge *knowledge.Store
	Matcher   *matcher.Matcher
	Resolver  *resolver.Coordinator
	Session   *assistant.Session
	Profiles  *profile.Store
	Hooks     *hooks.HookManager
	Scrubber  secrets.Scrubber
}

// registry is the concrete implementation of Registry.
type registry struct {
	knowledge *knowledge.Store
	matcher   *matcher.Matcher
	resolver  *resolver.Coordinator
	session   *assistant.Session
	profiles  *profile.Store
	hooks     *hooks.HookManager
	scrubber  secrets.Scrubber
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		knowledge: opts.Knowledge,
		matcher:   opts.Matcher,
		resolver:  opts.Resolver,
		session:   opts.Session,
		profiles:  opts.Profiles,
		hooks:     opts.Hooks,
		scrubber:  opts.Scrubber,
	}
}

func (r *registry) Knowledge() *knowledge.Store     { return r.knowledge }
func (r *registry) Matcher() *matcher.Matcher       { return r.matcher }
func (r *registry) Resolver() *resolver.Coordinator { return r.resolver }
func (r *registry) Session() *assistant.Session     { return r.session }
func (r *registry) Profiles() *profile.Store        { return r.profiles }
func (r *registry) Hooks() *hooks.HookManager       { return r.hooks }
func (r *registry) Scrubber() secrets.Scrubber      { return r.scrubber }
