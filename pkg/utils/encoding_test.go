package utils

import "testing"

func TestFloat32sBytes(t *testing.T) {
	in := []float32{1.5, -2, 0, 3.25}
	b := Float32sToBytes(in)
	if len(b) != 16 {
		t.Fatalf("encoded length = %d, want 16", len(b))
	}
	out, err := BytesToFloat32s(b)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestBytesToFloat32s_BadLength(t *testing.T) {
	if _, err := BytesToFloat32s([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated payload")
	}
}
