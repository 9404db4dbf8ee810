package vl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

func TestClassify(t *testing.T) {
	f := &fixture{word: 8}
	tests := []struct {
		name  string
		dt    *message.Datatype
		class Class
		vl    bool
	}{
		{"integer", i32(), ClassOther, false},
		{"float", f64(), ClassOther, false},
		{"fixed string", message.NewStringDatatype(8, message.PadNullPad, message.CharsetASCII), ClassOther, false},
		{"vlen string", f.vlString(), ClassVariableString, true},
		{"vlen sequence", f.vlen(i32()), ClassVariableLength, true},
		{"array of ints", message.NewArrayDatatype([]uint32{3}, i32()), ClassArray, false},
		{"array of vlen strings", message.NewArrayDatatype([]uint32{3}, f.vlString()), ClassArray, true},
		{"plain compound", f.compound([]string{"a", "b"}, i32(), f64()), ClassCompound, false},
		{"compound with vlen", f.compound([]string{"a", "s"}, i32(), f.vlString()), ClassCompound, true},
		{"compound with nested array of vlen", f.compound([]string{"inner"},
			f.compound([]string{"tags"}, message.NewArrayDatatype([]uint32{2}, f.vlString()))), ClassCompound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, err := Classify(tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.vl, ContainsVariableLength(tt.dt))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	_, err := Classify(nil)
	assert.ErrorIs(t, err, ErrInvalidTypeHandle)
	assert.False(t, ContainsVariableLength(nil))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "variable-string", ClassVariableString.String())
	assert.Equal(t, "Class(9)", Class(9).String())
}
