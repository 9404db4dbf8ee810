package hdf5

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"
)

// Attribute is a named value of one or more elements.
type Attribute struct {
	s     *Session
	id    h5lib.ID
	name  string
	dtype *Datatype
	// owned is set when the attribute opened its own type handle.
	owned bool
}

// CreateAttribute creates an attribute of type t. No dims gives a scalar
// attribute.
func (s *Session) CreateAttribute(name string, t *Datatype, dims ...uint64) (*Attribute, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	space, err := s.lib.CreateSimpleSpace(dims)
	if err != nil {
		return nil, err
	}
	defer s.lib.CloseHandle(space)

	id, err := s.lib.CreateAttribute(name, t.id, space)
	if err != nil {
		return nil, fmt.Errorf("creating attribute %q: %w", name, err)
	}
	return &Attribute{s: s, id: id, name: name, dtype: t}, nil
}

// OpenAttribute opens an existing attribute with its stored type.
func (s *Session) OpenAttribute(name string) (*Attribute, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	id, err := s.lib.OpenAttribute(name)
	if err != nil {
		return nil, fmt.Errorf("opening attribute %q: %w", name, err)
	}
	tid, err := s.lib.AttributeType(id)
	if err != nil {
		s.lib.CloseHandle(id)
		return nil, err
	}
	t, err := s.storedType(tid)
	if err != nil {
		s.lib.CloseHandle(tid)
		s.lib.CloseHandle(id)
		return nil, err
	}
	return &Attribute{s: s, id: id, name: name, dtype: t, owned: true}, nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.name
}

// Type returns the attribute's element type.
func (a *Attribute) Type() *Datatype {
	return a.dtype
}

// Shape returns the dimensions of the attribute value, nil for a scalar.
func (a *Attribute) Shape() ([]uint64, error) {
	space, err := a.s.lib.AttributeSpace(a.id)
	if err != nil {
		return nil, err
	}
	defer a.s.lib.CloseHandle(space)
	dims, err := a.s.lib.Dimensions(space)
	if len(dims) == 0 {
		return nil, err
	}
	return dims, err
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() (uint64, error) {
	space, err := a.s.lib.AttributeSpace(a.id)
	if err != nil {
		return 0, err
	}
	defer a.s.lib.CloseHandle(space)
	return a.s.lib.ElementCount(space)
}

func (a *Attribute) container() vl.Attribute {
	return vl.Attribute{ID: a.id, Name: a.name}
}

// ReadVariable reads every element.
func (a *Attribute) ReadVariable() ([]Value, error) {
	if err := a.s.check(); err != nil {
		return nil, err
	}
	return a.s.vl.ReadVariable(a.container(), a.dtype.id)
}

// WriteVariable writes one value per element.
func (a *Attribute) WriteVariable(values []Value) error {
	if err := a.s.check(); err != nil {
		return err
	}
	return a.s.vl.WriteVariable(a.container(), a.dtype.id, values)
}

// ReadStrings reads a string attribute. Strings that were never written
// read as "".
func (a *Attribute) ReadStrings() ([]string, error) {
	if err := a.s.check(); err != nil {
		return nil, err
	}
	return a.s.vl.ReadStrings(a.container(), a.dtype.id)
}

// WriteStrings writes a string attribute. nil entries are written as "".
func (a *Attribute) WriteStrings(values []*string) error {
	if err := a.s.check(); err != nil {
		return err
	}
	return a.s.vl.WriteStrings(a.container(), a.dtype.id, values)
}

// Close releases the attribute handle.
func (a *Attribute) Close() error {
	if a.owned {
		if err := a.dtype.Close(); err != nil {
			return err
		}
	}
	return a.s.lib.CloseHandle(a.id)
}
