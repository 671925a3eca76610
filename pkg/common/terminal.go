package common

import (
	"github.com/olekukonko/ts"
)

// DefaultTerminalWidth is used when stderr is not attached to a terminal
const DefaultTerminalWidth = 80

// TerminalWidth returns the column count of the controlling terminal and
// whether a terminal was detected at all.
func TerminalWidth() (int, bool) {
	size, err := ts.GetSize()
	if err != nil || size.Col() <= 0 {
		return DefaultTerminalWidth, false
	}
	return size.Col(), true
}
