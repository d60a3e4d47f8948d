package display

import "testing"

func TestKeyNormalize(t *testing.T) {
	tests := []struct {
		in, want Key
	}{
		{'H', 'h'},
		{'v', 'v'},
		{KeyKPEnter, KeyReturn},
		{KeyKPAdd, KeyPlus},
		{KeyKPSubtract, KeyMinus},
		{KeyKPZero, KeyZero},
		{KeyEscape, KeyEscape},
		{KeyNone, KeyNone},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("%v.Normalize() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKeymapLookup(t *testing.T) {
	km := keymap{
		min:     8,
		perCode: 2,
		syms:    []uint32{'a', 'A', 0xff1b, 0, ' ', ' '},
	}
	if got := km.lookup(8, false); got != 'a' {
		t.Errorf("lookup(8) = %v", got)
	}
	if got := km.lookup(8, true); got != 'A' {
		t.Errorf("lookup(8, shift) = %v", got)
	}
	if got := km.lookup(9, true); got != KeyEscape {
		t.Errorf("shifted keycode without a shifted sym = %v, want escape", got)
	}
	if got := km.lookup(7, false); got != KeyNone {
		t.Errorf("keycode below range = %v", got)
	}
	if got := km.lookup(11, false); got != KeyNone {
		t.Errorf("keycode above range = %v", got)
	}
}

func TestEncodeRowBGRx(t *testing.T) {
	pix := []byte{1, 2, 3, 255, 4, 5, 6, 255}
	f := pixmapFormat{bytesPerPixel: 4, scanlinePad: 4}
	data, stride, err := encode(pix, 8, 2, 1, f, 24)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{3, 2, 1, 0, 6, 5, 4, 0}
	if stride != 8 || string(data) != string(want) {
		t.Errorf("encode = %v (stride %d), want %v", data, stride, want)
	}
}

func TestEncodePadsScanlines(t *testing.T) {
	pix := []byte{1, 2, 3, 255, 7, 8, 9, 255}
	f := pixmapFormat{bytesPerPixel: 3, scanlinePad: 4}
	data, stride, err := encode(pix, 4, 1, 2, f, 24)
	if err != nil {
		t.Fatal(err)
	}
	if stride != 4 || len(data) != 8 {
		t.Fatalf("stride %d len %d, want 4 and 8", stride, len(data))
	}
	want := []byte{3, 2, 1, 0, 9, 8, 7, 0}
	if string(data) != string(want) {
		t.Errorf("encode = %v, want %v", data, want)
	}
}
