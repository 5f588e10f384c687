// Package numbering generates the human-readable record numbers printed
// on slips and labels. Machine identity is covered by ULIDs; these
// numbers exist for staff and members.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	BorrowingPrefix   = "BR"
	ReservationPrefix = "RS"
	MemberPrefix      = "M"

	// SequencePad is the zero-padding width of the yearly sequence part.
	SequencePad = 4

	// BookNumberFloor seeds the catalog numbering; an empty catalog
	// starts at B10001.
	BookNumberFloor = 10000
)

var bookNumberRe = regexp.MustCompile(`^B(\d+)$`)

// AutoNumber formats "{prefix}{year}{sequence zero-padded to pad digits}",
// e.g. AutoNumber("BR", 2026, 7, 4) -> "BR20260007".
func AutoNumber(prefix string, year int, sequence int, pad int) string {
	return fmt.Sprintf("%s%d%0*d", prefix, year, pad, sequence)
}

// NextSequence scans existing numbers for the given prefix and year and
// returns the next free sequence, starting at 1. Numbers with a different
// prefix or year, or a malformed suffix, are skipped rather than rejected.
func NextSequence(existing []string, prefix string, year int) int {
	head := fmt.Sprintf("%s%d", prefix, year)
	max := 0
	for _, n := range existing {
		if !strings.HasPrefix(n, head) {
			continue
		}
		seq, err := strconv.Atoi(n[len(head):])
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1
}

// Next formats the next free number for prefix/year given the numbers
// already assigned.
func Next(existing []string, prefix string, year int) string {
	return AutoNumber(prefix, year, NextSequence(existing, prefix, year), SequencePad)
}

// NextBookNumber suggests the next catalog number following the B{n}
// pattern. Malformed numbers are ignored in the max computation, so a
// catalog holding only junk still yields B10001.
func NextBookNumber(existing []string) string {
	max := BookNumberFloor
	for _, n := range existing {
		m := bookNumberRe.FindStringSubmatch(strings.TrimSpace(n))
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if num > max {
			max = num
		}
	}
	return fmt.Sprintf("B%d", max+1)
}
