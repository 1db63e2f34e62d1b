package dynamo

// Span is a half-open index range [Start, End).
type Span struct {
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

// SplitRange divides [0, n) into exactly parts contiguous spans whose sizes
// differ by at most one. The first n%parts spans carry the extra element.
// Spans past n are empty.
func SplitRange(n, parts int) []Span {
	if parts < 1 {
		parts = 1
	}
	if n < 0 {
		n = 0
	}

	base := n / parts
	extra := n % parts

	spans := make([]Span, parts)
	start := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < extra {
			size++
		}
		spans[i] = Span{Start: start, End: start + size}
		start += size
	}
	return spans
}
