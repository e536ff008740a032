package segment

// Merge collapses consecutive segments whose gap is below the threshold by
// extending the earlier segment across the gap. The input must be sorted by
// start time and pairwise non-overlapping, which holds for anything the
// detector emits; a single left-to-right pass is therefore sufficient and
// re-running Merge on its own output changes nothing.
func Merge(segments []Segment, gapThreshold float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]Segment, 0, len(segments))
	current := segments[0]
	for _, next := range segments[1:] {
		if next.Start-current.End < gapThreshold {
			current.End = next.End
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
