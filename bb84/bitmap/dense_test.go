package bitmap

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDenseGet(t *testing.T) {
	tcs := []struct {
		name  string
		data  Dense
		edata []bool
	}{
		{"implicit zeros", Dense{len: 3}, []bool{false, false, false}},
		{"aligned", mustDense(t, "10101010"), []bool{true, false, true, false, true, false, true, false}},
		{"multibyte",
			mustDense(t, "00000000 101"),
			[]bool{false, false, false, false, false, false, false, false, true, false, true}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var d []bool
			for i := 0; i < tc.data.Size(); i++ {
				d = append(d, tc.data.Get(i))
			}
			if !reflect.DeepEqual(d, tc.edata) {
				t.Errorf("t.Get() == %v, want %v", d, tc.edata)
			}
		})
	}
}

func TestDenseAppendBit(t *testing.T) {
	var d Dense
	for _, b := range []bool{true, false, true, true, false, false, false, false, true} {
		d.AppendBit(b)
	}
	want := mustDense(t, "10110000 1")
	if d.len != want.len || !bytes.Equal(d.bits, want.bits) {
		t.Errorf("got %v, want %v", d, want)
	}
}
