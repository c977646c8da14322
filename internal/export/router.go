package export

// Router dispatches Records to the Pipeline configured for their EntityType. An entity
// type with no configured pipeline is silently dropped (§4.9 "per-entity-type routing;
// silent no-op when unconfigured" -- export is opt-in per type, not an error to omit one).
type Router struct {
	pipelines map[string]*Pipeline
}

// NewRouter builds a Router from an entity-type -> Pipeline map.
func NewRouter(pipelines map[string]*Pipeline) *Router {
	return &Router{pipelines: pipelines}
}

// Route forwards rec to its type's pipeline, or does nothing if none is configured.
func (r *Router) Route(rec Record) error {
	p, ok := r.pipelines[rec.EntityType]
	if !ok {
		return nil
	}
	return p.Produce(rec)
}

// Close closes every configured pipeline, collecting (not short-circuiting on) errors so
// one writer's failure doesn't prevent others from flushing.
func (r *Router) Close() error {
	var firstErr error
	for _, p := range r.pipelines {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
