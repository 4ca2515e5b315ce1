package flux

// Context is an immutable, small map from keys to values. It is created at
// the sink and propagated upstream during subscription: every operator
// along the chain sees the same Context its downstream installed, and may
// add to it (producing a new Context) before passing it further upstream.
// A Context is never mutated in place; Put always returns a new value.
//
// Context carries the dropped-signal hooks (§4.A) and whatever
// user-defined values a caller wants visible to operators further
// upstream (cancellation hooks, request-scoped values, and so on).
type Context struct {
	parent *Context
	key    any
	value  any
}

// EmptyContext is the zero Context: no entries, falls through to the
// global hook fallback table for every lookup.
func EmptyContext() Context {
	return Context{}
}

// Put returns a new Context with key bound to value, shadowing any
// existing binding of the same key in the receiver.
func (c Context) Put(key, value any) Context {
	return Context{parent: &c, key: key, value: value}
}

// PutAll layers every entry of other on top of c. other's bindings win on
// key collision.
func (c Context) PutAll(other Context) Context {
	if other.key == nil && other.parent == nil {
		return c
	}
	merged := c
	chain := collectChain(other)
	for i := len(chain) - 1; i >= 0; i-- {
		merged = merged.Put(chain[i].key, chain[i].value)
	}
	return merged
}

func collectChain(c Context) []Context {
	var out []Context
	for c.parent != nil || c.key != nil {
		out = append(out, c)
		if c.parent == nil {
			break
		}
		c = *c.parent
	}
	return out
}

// Get looks up key, walking from the most-recently-Put binding back
// towards the root.
func (c Context) Get(key any) (any, bool) {
	for {
		if c.key == key {
			return c.value, true
		}
		if c.parent == nil {
			return nil, false
		}
		c = *c.parent
	}
}

// GetOr returns the bound value for key, or fallback if unbound.
func (c Context) GetOr(key, fallback any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	return fallback
}

// HasKey reports whether key is bound anywhere in c.
func (c Context) HasKey(key any) bool {
	_, ok := c.Get(key)
	return ok
}

// Context key types for the hooks §4.A/§9 describe. Unexported struct
// types so user code cannot accidentally collide with them.
type (
	onNextDroppedKey  struct{}
	onErrorDroppedKey struct{}
	onDiscardKey      struct{}
	onOperatorErrKey  struct{}
	listenerKey       struct{}
	onErrorContinueKey struct{}
)

// WithOnNextDropped installs a per-subscription onNextDropped hook into ctx.
func WithOnNextDropped(ctx Context, fn func(v any)) Context {
	return ctx.Put(onNextDroppedKey{}, fn)
}

// WithOnErrorDropped installs a per-subscription onErrorDropped hook into ctx.
func WithOnErrorDropped(ctx Context, fn func(err error)) Context {
	return ctx.Put(onErrorDroppedKey{}, fn)
}

// WithOnDiscard installs a per-subscription discard hook into ctx.
func WithOnDiscard(ctx Context, fn func(v any)) Context {
	return ctx.Put(onDiscardKey{}, fn)
}

// WithOnErrorContinue installs a per-element error handler into ctx: an
// operator that raises an error while processing a single element (map,
// filter, ...) consults this hook before terminating the sequence; if
// present, the element is dropped and the sequence continues instead
// (§4.I "onErrorContinue").
func WithOnErrorContinue(ctx Context, fn func(err error, value any)) Context {
	return ctx.Put(onErrorContinueKey{}, fn)
}

func getOnErrorContinue(ctx Context) (func(err error, value any), bool) {
	raw, ok := ctx.Get(onErrorContinueKey{})
	if !ok {
		return nil, false
	}
	fn, ok := raw.(func(error, any))
	return fn, ok
}

// WithListener installs an Observation Listener into ctx; see listener.go.
func WithListener[T any](ctx Context, l *Listener[T]) Context {
	return ctx.Put(listenerKey{}, l)
}

// GetListener retrieves a *Listener[T] installed by WithListener[T], if any
// matching one is bound in ctx.
func GetListener[T any](ctx Context) (*Listener[T], bool) {
	raw, ok := ctx.Get(listenerKey{})
	if !ok {
		return nil, false
	}
	l, ok := raw.(*Listener[T])
	return l, ok
}
