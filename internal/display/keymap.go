package display

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// keymap is the server's keycode to keysym table
type keymap struct {
	min     int
	perCode int
	syms    []uint32
}

func loadKeymap(conn *xgb.Conn, setup *xproto.SetupInfo) (keymap, error) {
	first := setup.MinKeycode
	count := byte(int(setup.MaxKeycode) - int(first) + 1)

	reply, err := xproto.GetKeyboardMapping(conn, first, count).Reply()
	if err != nil {
		return keymap{}, fmt.Errorf("failed to read keyboard mapping: %w", err)
	}

	km := keymap{
		min:     int(first),
		perCode: int(reply.KeysymsPerKeycode),
		syms:    make([]uint32, len(reply.Keysyms)),
	}
	for i, s := range reply.Keysyms {
		km.syms[i] = uint32(s)
	}
	return km, nil
}

// lookup returns the keysym for a keycode, using the shifted column when
// shift is held and the keycode has one
func (km keymap) lookup(code byte, shift bool) Key {
	if km.perCode == 0 {
		return KeyNone
	}
	i := (int(code) - km.min) * km.perCode
	if int(code) < km.min || i >= len(km.syms) {
		return KeyNone
	}
	if shift && km.perCode > 1 && km.syms[i+1] != 0 {
		return Key(km.syms[i+1])
	}
	return Key(km.syms[i])
}
