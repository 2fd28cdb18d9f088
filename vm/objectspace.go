package vm

import (
	"errors"
	"sort"
)

// ObjectSpace manages every object record known to a VM.
//
// It is owned by a single VM and, like the VM, is not safe for concurrent use.
type ObjectSpace struct {
	objects     map[string]*Object
	persistence *Persistence
}

// NewObjectSpace creates a new empty object space.
func NewObjectSpace() *ObjectSpace {
	return &ObjectSpace{
		objects: make(map[string]*Object),
	}
}

// SetPersistence attaches a durable store consulted when an identity is not
// in memory.
func (os *ObjectSpace) SetPersistence(p *Persistence) {
	os.persistence = p
}

// Mint creates a record with a fresh identity for the given class.
// Nothing is resolved or constructed.
func (os *ObjectSpace) Mint(className string) *Object {
	obj := NewObject(className, newIdentity())
	os.objects[obj.ID] = obj
	return obj
}

// Register adds an existing record, replacing any record with the same identity.
func (os *ObjectSpace) Register(obj *Object) {
	os.objects[obj.ID] = obj
}

// Lookup returns the in-memory record for an identity, or nil.
func (os *ObjectSpace) Lookup(id string) *Object {
	return os.objects[id]
}

// Obtain returns the record behind a reference. It looks in memory, then in
// the persistent store, and otherwise creates an empty record: identities
// are plain tokens, so a well-formed reference always names an object.
func (os *ObjectSpace) Obtain(ref Ref) (*Object, error) {
	if obj := os.objects[ref.ID]; obj != nil {
		return obj, nil
	}
	if os.persistence != nil {
		obj, err := os.persistence.Load(ref.ID)
		switch {
		case err == nil:
			os.objects[obj.ID] = obj
			return obj, nil
		case !errors.Is(err, ErrObjectNotFound):
			return nil, err
		}
	}
	obj := NewObject(ref.Class, ref.ID)
	os.objects[obj.ID] = obj
	return obj, nil
}

// Remove forgets an in-memory record.
func (os *ObjectSpace) Remove(id string) {
	delete(os.objects, id)
}

// All returns every record sorted by identity.
func (os *ObjectSpace) All() []*Object {
	result := make([]*Object, 0, len(os.objects))
	for _, obj := range os.objects {
		result = append(result, obj)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of records in memory.
func (os *ObjectSpace) Len() int {
	return len(os.objects)
}
