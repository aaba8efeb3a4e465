package fact

import (
	"github.com/ksd-co/rule-engine-postgres/types"
)

// Facts is the root working-memory mapping from entity name to an Object
// value (spec §3). It is created at the boundary of an evaluation, mutated
// only by the kernel's applicator, and discarded at session end.
type Facts struct {
	root *Object
}

// New returns an empty Facts with no entities.
func New() *Facts {
	return &Facts{root: NewObject()}
}

// FromEntities builds a Facts root from a caller-supplied entity map,
// cloning every Object so later mutation never aliases the caller's data.
func FromEntities(entities map[string]*Object, order []string) *Facts {
	f := New()
	for _, name := range order {
		if obj, ok := entities[name]; ok {
			f.root.Set(name, obj.Clone())
		}
	}
	return f
}

// Entity returns the Object for a top-level entity name, creating it if
// absent — set(path, value) on a fresh entity must still succeed (spec §4.A:
// "set creates missing intermediate objects").
func (f *Facts) Entity(name string) *Object {
	v, ok := f.root.Get(name)
	if !ok {
		obj := NewObject()
		f.root.Set(name, obj)
		return obj
	}
	obj, ok := v.(*Object)
	if !ok {
		obj = NewObject()
		f.root.Set(name, obj)
	}
	return obj
}

// EntityNames returns top-level entity names in insertion order.
func (f *Facts) EntityNames() []string {
	return f.root.Keys()
}

// Get resolves a dotted path to a Value. A missing path yields Null (spec
// §4.A) rather than an error; only malformed paths are rejected.
func (f *Facts) Get(path string) (Value, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Null{}, err
	}
	return f.get(p), nil
}

func (f *Facts) get(p Path) Value {
	if len(p) == 0 {
		return Null{}
	}
	cur, ok := f.root.Get(p[0])
	if !ok {
		return Null{}
	}
	for _, seg := range p[1:] {
		obj, isObj := cur.(*Object)
		if !isObj {
			return Null{}
		}
		cur, ok = obj.Get(seg)
		if !ok {
			return Null{}
		}
	}
	return cur
}

// Set assigns path to v, creating any missing intermediate objects (spec
// §3 I1: "every mutation resolves to exactly one leaf").
func (f *Facts) Set(path string, v Value) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return f.set(p, v)
}

func (f *Facts) set(p Path, v Value) error {
	if len(p) == 0 {
		return types.NewError(types.CodePathMalformed, "empty path", nil)
	}
	if len(p) == 1 {
		f.root.Set(p[0], v)
		return nil
	}
	obj := f.Entity(p[0])
	for _, seg := range p[1 : len(p)-1] {
		next, ok := obj.Get(seg)
		if !ok {
			child := NewObject()
			obj.Set(seg, child)
			obj = child
			continue
		}
		child, isObj := next.(*Object)
		if !isObj {
			child = NewObject()
			obj.Set(seg, child)
		}
		obj = child
	}
	obj.Set(p[len(p)-1], v)
	return nil
}

// Snapshot returns a deep copy of the Facts, used by the kernel to hand the
// caller a final-facts result that is safe to retain after the session ends.
func (f *Facts) Snapshot() *Facts {
	return &Facts{root: f.root.Clone()}
}
