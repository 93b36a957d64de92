package tui

import (
	"strings"

	"github.com/shopspring/decimal"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values as one row of block characters, at most width wide.
// Values that are not numbers are skipped.
func Sparkline(values []string, width int) string {
	nums := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		nums = append(nums, d)
	}
	if len(nums) == 0 || width <= 0 {
		return ""
	}

	// Downsample to width evenly spaced points
	if len(nums) > width {
		picked := make([]decimal.Decimal, width)
		for i := range picked {
			picked[i] = nums[i*(len(nums)-1)/max(width-1, 1)]
		}
		nums = picked
	}

	lo, hi := nums[0], nums[0]
	for _, n := range nums[1:] {
		lo = decimal.Min(lo, n)
		hi = decimal.Max(hi, n)
	}
	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkBlocks) - 1))

	var b strings.Builder
	for _, n := range nums {
		idx := 0
		if !span.IsZero() {
			idx = int(n.Sub(lo).Div(span).Mul(top).Round(0).IntPart())
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
