package alerts

// seenSet tracks alert keys within one merge so repeated ids in the same
// bucket are reported once.
type seenSet struct {
	items map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{items: make(map[string]struct{})}
}

func (s *seenSet) Seen(key string) bool {
	if _, ok := s.items[key]; ok {
		return true
	}
	s.items[key] = struct{}{}
	return false
}
