package ops

import (
	"fmt"
	"strconv"
	"strings"
)

// PageRange is an inclusive 1-based page interval.
type PageRange struct {
	From, To int
}

func (r PageRange) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From)
	}
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// ParseRanges reads a selection such as "1-3,5,8-" or "all" against a document
// of pageCount pages. An open upper bound means the last page.
func ParseRanges(spec string, pageCount int) ([]PageRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty selection", ErrInvalidPages)
	}
	if strings.EqualFold(spec, "all") {
		if pageCount < 1 {
			return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPages)
		}
		return []PageRange{{From: 1, To: pageCount}}, nil
	}
	var out []PageRange
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRange(part, pageCount)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrInvalidPages)
	}
	return out, nil
}

func parseRange(part string, pageCount int) (PageRange, error) {
	from, to, isRange := strings.Cut(part, "-")
	a, err := pageNumber(from, pageCount)
	if err != nil {
		return PageRange{}, err
	}
	if !isRange {
		return PageRange{From: a, To: a}, nil
	}
	b := pageCount
	if strings.TrimSpace(to) != "" {
		if b, err = pageNumber(to, pageCount); err != nil {
			return PageRange{}, err
		}
	}
	if a > b {
		return PageRange{}, fmt.Errorf("%w: %q runs backwards", ErrInvalidPages, part)
	}
	return PageRange{From: a, To: b}, nil
}

func pageNumber(s string, pageCount int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a page number", ErrInvalidPages, s)
	}
	if n < 1 || n > pageCount {
		return 0, fmt.Errorf("%w: page %d outside 1-%d", ErrInvalidPages, n, pageCount)
	}
	return n, nil
}

// ParseSplit accepts "every N" as well as a range list; each range becomes one part.
func ParseSplit(spec string, pageCount int) ([]PageRange, error) {
	fields := strings.Fields(strings.ToLower(spec))
	if len(fields) == 2 && fields[0] == "every" {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPages, spec)
		}
		var out []PageRange
		for from := 1; from <= pageCount; from += n {
			out = append(out, PageRange{From: from, To: min(from+n-1, pageCount)})
		}
		return out, nil
	}
	return ParseRanges(spec, pageCount)
}

// Selection renders ranges in the form pdfcpu accepts for selected pages.
func Selection(ranges []PageRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.String()
	}
	return out
}

// Covered counts distinct pages in ranges.
func Covered(ranges []PageRange) int {
	seen := make(map[int]struct{})
	for _, r := range ranges {
		for p := r.From; p <= r.To; p++ {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}
