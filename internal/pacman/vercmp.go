package pacman

import "strings"

// Vercmp compares two package versions using pacman's ordering rules.
//
// The result is negative when a is older than b, zero when both are
// equivalent and positive when a is newer. Versions have the form
// [epoch:]version[-release]. The epoch is compared first, then the version,
// and the release only when both sides carry one.
func Vercmp(a, b string) int {
	if a == b {
		return 0
	}

	epochA, verA, relA, hasRelA := parseEVR(a)
	epochB, verB, relB, hasRelB := parseEVR(b)

	if ret := rpmvercmp(epochA, epochB); ret != 0 {
		return ret
	}
	if ret := rpmvercmp(verA, verB); ret != 0 {
		return ret
	}
	if hasRelA && hasRelB {
		return rpmvercmp(relA, relB)
	}
	return 0
}

// parseEVR splits a version string into epoch, version and release. A
// missing or empty epoch is reported as "0".
func parseEVR(evr string) (epoch, version, release string, hasRelease bool) {
	i := 0
	for i < len(evr) && isDigit(evr[i]) {
		i++
	}

	start := 0
	epoch = "0"
	if i < len(evr) && evr[i] == ':' {
		if i > 0 {
			epoch = evr[:i]
		}
		start = i + 1
	}

	end := len(evr)
	if j := strings.LastIndexByte(evr[i:], '-'); j >= 0 {
		end = i + j
		release = evr[end+1:]
		hasRelease = true
	}

	return epoch, evr[start:end], release, hasRelease
}

// rpmvercmp compares two version segments. Runs of digits compare
// numerically, runs of letters compare lexically and everything else is a
// separator. A trailing alphabetic run sorts before the end of the string,
// so 1.0a is older than 1.0.
func rpmvercmp(a, b string) int {
	if a == b {
		return 0
	}

	one, two := 0, 0
	ptr1, ptr2 := 0, 0

	for one < len(a) && two < len(b) {
		for one < len(a) && !isAlnum(a[one]) {
			one++
		}
		for two < len(b) && !isAlnum(b[two]) {
			two++
		}

		if one >= len(a) || two >= len(b) {
			break
		}

		// More separators wins: 1..0 is newer than 1.0.
		if sep1, sep2 := one-ptr1, two-ptr2; sep1 != sep2 {
			if sep1 < sep2 {
				return -1
			}
			return 1
		}

		ptr1, ptr2 = one, two

		isNum := isDigit(a[ptr1])
		if isNum {
			for ptr1 < len(a) && isDigit(a[ptr1]) {
				ptr1++
			}
			for ptr2 < len(b) && isDigit(b[ptr2]) {
				ptr2++
			}
		} else {
			for ptr1 < len(a) && isAlpha(a[ptr1]) {
				ptr1++
			}
			for ptr2 < len(b) && isAlpha(b[ptr2]) {
				ptr2++
			}
		}

		seg1, seg2 := a[one:ptr1], b[two:ptr2]

		// Segments of different kinds: numeric always beats alpha.
		if seg2 == "" {
			if isNum {
				return 1
			}
			return -1
		}

		if isNum {
			seg1 = strings.TrimLeft(seg1, "0")
			seg2 = strings.TrimLeft(seg2, "0")
			if len(seg1) > len(seg2) {
				return 1
			}
			if len(seg2) > len(seg1) {
				return -1
			}
		}

		if c := strings.Compare(seg1, seg2); c != 0 {
			return c
		}

		one, two = ptr1, ptr2
	}

	oneDone, twoDone := one >= len(a), two >= len(b)
	if oneDone && twoDone {
		return 0
	}

	// A remaining alpha run never beats an empty string.
	if (oneDone && !isAlpha(b[two])) || (!oneDone && isAlpha(a[one])) {
		return -1
	}
	return 1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isDigit(c) || isAlpha(c)
}
