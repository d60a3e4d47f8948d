package loop

import "github.com/bryanchriswhite/grab/internal/display"

// Command is an operator action, triggered by a key or the control API
type Command string

const (
	CmdFlipH    Command = "flip-h"
	CmdFlipV    Command = "flip-v"
	CmdGrow     Command = "grow"
	CmdShrink   Command = "shrink"
	CmdNormal   Command = "normal"
	CmdSnapshot Command = "snapshot"
	CmdRecord   Command = "record"
	CmdQuit     Command = "quit"
)

var keyBindings = map[display.Key]Command{
	'h':               CmdFlipH,
	'v':               CmdFlipV,
	display.KeyPlus:   CmdGrow,
	display.KeyEqual:  CmdGrow,
	display.KeyMinus:  CmdShrink,
	display.KeyZero:   CmdNormal,
	'n':               CmdNormal,
	display.KeySpace:  CmdSnapshot,
	display.KeyReturn: CmdRecord,
	display.KeyEscape: CmdQuit,
}

// Commands lists every command name, in key-table order
func Commands() []Command {
	return []Command{CmdFlipH, CmdFlipV, CmdGrow, CmdShrink, CmdNormal, CmdSnapshot, CmdRecord, CmdQuit}
}

// CommandForKey maps a key to its command. Unbound keys report false.
func CommandForKey(k display.Key) (Command, bool) {
	cmd, ok := keyBindings[k.Normalize()]
	return cmd, ok
}

// ParseCommand validates a command name
func ParseCommand(name string) (Command, bool) {
	for _, c := range Commands() {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}
