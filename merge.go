package reactor

import "reflect"

// State is a snapshot of the composed state: a mapping from top-level field
// name to value. Snapshots are copy-on-write: committed maps are never
// mutated in place, so a snapshot handed to a caller stays stable. Treat
// snapshots as read-only.
type State map[string]any

// Patch is a partial-state update. Applying a patch deep-merges it onto the
// current state: nested maps merge key by key, every other value (scalars,
// slices, structs) replaces the previous value at that path. Keys absent from
// the patch are left untouched, and a nil patch value never deletes a key.
type Patch map[string]any

// Emission is a single output of a patch stream. Exactly one of Patch or Err
// is set: a successful emission carries the patch to merge, a failed one
// carries the error that replaced it.
type Emission struct {
	Patch Patch
	Err   error
}

// merge applies p onto cur without mutating cur. It returns the new state and
// the top-level keys whose values actually changed, which drive effect
// scheduling. Unchanged subtrees are shared between cur and the result.
func merge(cur State, p Patch) (State, []string) {
	next := make(State, len(cur)+len(p))
	for k, v := range cur {
		next[k] = v
	}

	var changed []string
	for k, v := range p {
		if v == nil {
			// Additive merge: an explicit nil does not delete or
			// overwrite the existing value.
			if _, exists := cur[k]; exists {
				continue
			}
			next[k] = nil
			changed = append(changed, k)
			continue
		}
		merged := mergeValue(cur[k], v)
		if !reflect.DeepEqual(cur[k], merged) {
			changed = append(changed, k)
		}
		next[k] = merged
	}
	return next, changed
}

// mergeValue merges one patch value onto one state value. Two maps merge
// recursively; anything else replaces.
func mergeValue(old, patch any) any {
	om, oldIsMap := asMap(old)
	pm, patchIsMap := asMap(patch)
	if !oldIsMap || !patchIsMap {
		return patch
	}

	out := make(map[string]any, len(om)+len(pm))
	for k, v := range om {
		out[k] = v
	}
	for k, v := range pm {
		if v == nil {
			if _, exists := om[k]; exists {
				continue
			}
			out[k] = nil
			continue
		}
		out[k] = mergeValue(om[k], v)
	}
	return out
}

// asMap normalizes the map shapes that show up in patches: plain
// map[string]any plus the named Patch and State types.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Patch:
		return m, true
	case State:
		return m, true
	default:
		return nil, false
	}
}
