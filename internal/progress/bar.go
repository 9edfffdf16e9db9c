package progress

import (
	"fmt"
	"strings"
)

// DefaultBarWidth is the number of cells in an upload bar.
const DefaultBarWidth = 20

// Bar renders a fixed-width text bar such as "[##########----------]  50%".
// A zero total is treated as complete.
func Bar(sent, total int64, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}

	frac := 1.0
	if total > 0 {
		frac = float64(sent) / float64(total)
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(frac*float64(width) + 0.5)
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("#", filled),
		strings.Repeat("-", width-filled),
		int(frac*100),
	)
}
