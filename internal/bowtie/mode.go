package bowtie

import (
	"fmt"
	"strings"
)

// Mode selects the property an obligation asks about.
type Mode int

const (
	// ModeBowtie asks whether the two operations commute.
	ModeBowtie Mode = iota
	// ModeDeterministic asks whether the first operation is deterministic.
	ModeDeterministic
	// ModeComplete asks whether the first operation is total on its
	// pre-condition.
	ModeComplete
	// ModeLeftMover requires the second-then-first order not to fail.
	ModeLeftMover
	// ModeRightMover requires the first-then-second order not to fail.
	ModeRightMover
)

var modeNames = [...]string{
	ModeBowtie:        "bowtie",
	ModeDeterministic: "deterministic",
	ModeComplete:      "complete",
	ModeLeftMover:     "leftmover",
	ModeRightMover:    "rightmover",
}

// Modes lists every mode name.
func Modes() []string {
	return append([]string(nil), modeNames[:]...)
}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown check %q (want one of %s)", s, strings.Join(modeNames[:], ", "))
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Learned reports whether the property is learned over predicates. The
// other modes are settled by a single validity query.
func (m Mode) Learned() bool {
	switch m {
	case ModeBowtie, ModeLeftMover, ModeRightMover:
		return true
	}
	return false
}
