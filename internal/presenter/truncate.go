package presenter

import (
	"github.com/rivo/uniseg"

	"github.com/hammamikhairi/doorpanel/internal/domain"
)

const ellipsis = "..."

// Truncate shortens text until it fits maxWidth pixels, appending "..."
// when anything was cut. Text is only ever cut between grapheme clusters.
// If not even the ellipsis fits, the result is empty.
func Truncate(m domain.Metrics, text string, maxWidth int) (string, error) {
	w, err := m.MeasureWidth(text)
	if err != nil {
		return "", err
	}
	if w <= maxWidth {
		return text, nil
	}

	// Byte offsets of every cluster boundary, excluding the end of text.
	var cuts []int
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		from, _ := g.Positions()
		cuts = append(cuts, from)
	}

	// Prefix widths grow with the number of clusters, so binary search for
	// the longest prefix that still fits alongside the ellipsis.
	lo, hi := 0, len(cuts)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		w, err := m.MeasureWidth(text[:cuts[mid]] + ellipsis)
		if err != nil {
			return "", err
		}
		if w <= maxWidth {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		return "", nil
	}
	return text[:cuts[best]] + ellipsis, nil
}
