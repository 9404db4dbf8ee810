package main

import (
	"fmt"
	"strings"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/hdf5"
)

type scenario struct {
	name     string
	typeDesc string
	typ      hdf5.Type
	dims     []uint64
	values   []hdf5.Value
	strings  []*string
}

type outcome struct {
	wrote  string
	read   string
	leaked int64
	err    error
}

func ptr(s string) *string { return &s }

func scenarios() []scenario {
	return []scenario{
		{
			name:     "names",
			typeDesc: "vlen string[3]",
			typ:      hdf5.VarLenString(),
			dims:     []uint64{3},
			strings:  []*string{ptr("a"), nil, ptr("ccc")},
		},
		{
			name:     "sequences",
			typeDesc: "vlen int32[2]",
			typ:      hdf5.VarLen(hdf5.Int32()),
			dims:     []uint64{2},
			values:   []hdf5.Value{hdf5.Ints[int32](1, 2, 3), hdf5.Ints[int32]()},
		},
		{
			name:     "records",
			typeDesc: "{id int32, tags vlen string[2]}[1]",
			typ: hdf5.Compound(
				hdf5.Field("id", hdf5.Int32()),
				hdf5.Field("tags", hdf5.Array(hdf5.VarLenString(), 2)),
			),
			dims: []uint64{1},
			values: []hdf5.Value{hdf5.Fields{
				{Name: "id", Value: hdf5.Scalar{V: int32(7)}},
				{Name: "tags", Value: hdf5.Strings(ptr("x"), nil)},
			}},
		},
		{
			name:     "empty",
			typeDesc: "vlen string[0]",
			typ:      hdf5.VarLenString(),
			dims:     []uint64{0},
			strings:  []*string{},
		},
	}
}

// run writes the scenario to a fresh dataset and reads it back. Handles
// it opens are closed before it returns.
func (sc scenario) run(s *hdf5.Session) (out outcome) {
	before := s.Stats().LiveBlocks
	defer func() {
		out.leaked = int64(s.Stats().LiveBlocks) - int64(before)
	}()

	dt, err := s.CommitType(sc.typ)
	if err != nil {
		out.err = err
		return out
	}
	defer dt.Close()

	ds, err := s.CreateDataset(sc.name, dt, sc.dims...)
	if err != nil {
		out.err = err
		return out
	}
	defer ds.Close()

	if sc.strings != nil {
		out.wrote = quoteAll(sc.strings)
		if out.err = ds.WriteStrings(nil, sc.strings); out.err != nil {
			return out
		}
		got, err := ds.ReadStrings(nil)
		out.read, out.err = fmt.Sprintf("%q", got), err
		return out
	}

	out.wrote = join(sc.values)
	if out.err = ds.WriteVariable(nil, sc.values); out.err != nil {
		return out
	}
	got, err := ds.ReadVariable(nil)
	out.read, out.err = join(got), err
	return out
}

func quoteAll(vs []*string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		if v == nil {
			parts[i] = "null"
		} else {
			parts[i] = fmt.Sprintf("%q", *v)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func join(vs []hdf5.Value) string {
	return hdf5.List(vs).String()
}
