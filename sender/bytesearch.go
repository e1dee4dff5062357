package sender

// IndexFrom returns the index of the first occurrence of pattern in buf at or
// after offset, or -1 if there is none.
func IndexFrom(buf []byte, offset int, pattern []byte) int {
	if len(pattern) == 0 {
		return -1
	}
	if offset < 0 {
		offset = 0
	}
outer:
	for i := offset; i <= len(buf)-len(pattern); i++ {
		for j := range pattern {
			if buf[i+j] != pattern[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
