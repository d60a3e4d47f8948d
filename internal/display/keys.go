package display

// Key is an X keysym. Printable Latin-1 keys use their character code.
type Key uint32

const (
	KeyNone       Key = 0
	KeySpace      Key = ' '
	KeyPlus       Key = '+'
	KeyEqual      Key = '='
	KeyMinus      Key = '-'
	KeyZero       Key = '0'
	KeyReturn     Key = 0xff0d
	KeyEscape     Key = 0xff1b
	KeyKPEnter    Key = 0xff8d
	KeyKPAdd      Key = 0xffab
	KeyKPSubtract Key = 0xffad
	KeyKPZero     Key = 0xffb0
)

// Normalize folds keypad keys onto their main-keyboard equivalents and
// upper-case letters onto lower case
func (k Key) Normalize() Key {
	switch k {
	case KeyKPEnter:
		return KeyReturn
	case KeyKPAdd:
		return KeyPlus
	case KeyKPSubtract:
		return KeyMinus
	case KeyKPZero:
		return KeyZero
	}
	if k >= 'A' && k <= 'Z' {
		return k + ('a' - 'A')
	}
	return k
}

func (k Key) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeySpace:
		return "space"
	case KeyReturn:
		return "return"
	case KeyEscape:
		return "escape"
	}
	if k > ' ' && k < 0x7f {
		return string(rune(k))
	}
	return "keysym"
}
