package ranges

// Diff compares two transcripts' interval sets and returns, for each, the
// regions not covered by the other. Every returned fragment lying entirely
// before the first shared base is tagged Upstream, and every fragment lying
// entirely after the last shared base is tagged Downstream, where "before"
// and "after" follow the strand of a (5' to 3'). Fragments between shared
// regions carry no tag. If a and b share no base, nothing is tagged.
//
// aOnly and bOnly together partition the non-shared bases of a and b.
func Diff(a, b Set) (aOnly, bOnly Set) {
	aOnly = Subtract(a, b)
	bOnly = Subtract(b, a)

	shared := Intersect(a, b)
	if len(shared) == 0 {
		return aOnly, bOnly
	}
	first := shared[0].Start
	last := shared[len(shared)-1].End

	reverse := a.Strand() == Reverse
	tag := func(s Set) {
		for i := range s {
			low := s[i].End <= first
			high := s[i].Start >= last
			if reverse {
				low, high = high, low
			}
			s[i].Upstream = low
			s[i].Downstream = high
		}
	}
	tag(aOnly)
	tag(bOnly)
	return aOnly, bOnly
}
