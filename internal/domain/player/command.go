package player

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op identifies a control command.
type Op string

// Supported control operations, matching the wire command names.
const (
	OpPlay          Op = "play"
	OpPause         Op = "pause"
	OpNext          Op = "next"
	OpBack          Op = "back"
	OpToggleShuffle Op = "toggle-shuffle"
	OpPlayIndex     Op = "play-index" // wire form "play:<idx>"
	OpVolume        Op = "volume"     // wire form "volume:<v>"
	OpDelete        Op = "delete"     // wire form "delete:<idx>"
)

// Command is a decoded control command. Index is meaningful for
// OpPlayIndex and OpDelete, Volume for OpVolume.
type Command struct {
	Op     Op
	Index  int
	Volume float64
}

// ParseCommand decodes a raw command line of the form "name" or "name:arg".
// Integer arguments are expected for play/delete and a float for volume.
// Anything unparseable or unknown returns ErrInvalidCommand; such input
// never reaches the state machine.
func ParseCommand(raw string) (Command, error) {
	line := strings.ToLower(strings.TrimSpace(raw))

	name, arg, hasArg := strings.Cut(line, ":")
	if !hasArg {
		switch name {
		case "play":
			return Command{Op: OpPlay}, nil
		case "pause":
			return Command{Op: OpPause}, nil
		case "next":
			return Command{Op: OpNext}, nil
		case "back":
			return Command{Op: OpBack}, nil
		case "toggle-shuffle":
			return Command{Op: OpToggleShuffle}, nil
		}
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidCommand, raw)
	}

	switch name {
	case "play", "delete":
		idx, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return Command{}, fmt.Errorf("%w: %q: bad index", ErrInvalidCommand, raw)
		}
		op := OpPlayIndex
		if name == "delete" {
			op = OpDelete
		}
		return Command{Op: op, Index: idx}, nil
	case "volume":
		vol, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		// ParseFloat accepts "nan" and "inf"; neither is a volume.
		if err != nil || math.IsNaN(vol) || math.IsInf(vol, 0) {
			return Command{}, fmt.Errorf("%w: %q: bad volume", ErrInvalidCommand, raw)
		}
		return Command{Op: OpVolume, Volume: vol}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrInvalidCommand, raw)
}
