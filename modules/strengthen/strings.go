package strengthen

// StrSplitSkipEmpty splits s on sep, skipping empty components, e.g. to turn
// "/deep/deeper1/deepest" into ["deep", "deeper1", "deepest"].
func StrSplitSkipEmpty(s string, sep byte, cap int) []string {
	sv := make([]string, 0, cap)
	var first, i int
	for ; i < len(s); i++ {
		if s[i] != sep {
			continue
		}
		if first != i {
			sv = append(sv, s[first:i])
		}
		first = i + 1
	}
	if first < len(s) {
		sv = append(sv, s[first:])
	}
	return sv
}
