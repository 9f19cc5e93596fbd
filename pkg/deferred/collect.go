package deferred

// PlaceholderKey marks a deferred placeholder in the immediate payload:
// a pending field serializes as {"$deferred": "<id>"} and the client
// swaps the placeholder for the streamed resolution.
const PlaceholderKey = "$deferred"

// Collection is a loader result split into what ships now and what
// streams later.
type Collection struct {
	// Data mirrors the loader result with every pending value replaced
	// by its placeholder. Safe to serialize immediately.
	Data any

	// Deferred lists the pending values, in declaration order. Delivery
	// order is settlement order; this slice only says what to wait for.
	Deferred []*Deferred
}

// HasDeferred reports whether anything remains to stream.
func (c Collection) HasDeferred() bool { return len(c.Deferred) > 0 }

// Collect partitions a loader result without blocking on pending values.
// It walks maps and slices; a *Deferred anywhere in that structure becomes
// a placeholder. Values of other types — including structs — ship as-is,
// so a deferred field must live in a map to be recognized:
//
//	return map[string]any{
//	    "fast": fast,
//	    "slow": deferred.Go(ctx.StdContext(), slow),
//	}, nil
//
// A deferred that settled before Collect runs is still streamed, not
// inlined: the client contract is one placeholder, one settle event.
// The same value placed in several spots collects once; every occurrence
// shares the placeholder and settles from the one event.
func Collect(result any) Collection {
	c := Collection{}
	c.Data = c.walk(result)
	return c
}

func (c *Collection) walk(v any) any {
	switch t := v.(type) {
	case *Deferred:
		for _, seen := range c.Deferred {
			if seen.id == t.id {
				return map[string]any{PlaceholderKey: t.id}
			}
		}
		c.Deferred = append(c.Deferred, t)
		return map[string]any{PlaceholderKey: t.id}

	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = c.walk(val)
		}
		return out

	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = c.walk(val)
		}
		return out

	default:
		return v
	}
}
