// Package pagination maps 1-indexed, newest-first pages onto a dense range of
// record indices 1..total.
package pagination

import "errors"

var (
	ErrZeroPage    = errors.New("page must be greater than 0")
	ErrZeroPerPage = errors.New("items per page must be greater than 0")
	ErrOutOfBounds = errors.New("page is out of bounds")
)

// Range is an inclusive block of record indices. Newest is the higher index.
type Range struct {
	Newest uint64
	Oldest uint64
}

// Len returns the number of indices covered.
func (r Range) Len() int {
	return int(r.Newest - r.Oldest + 1)
}

// Indices lists the covered indices newest first.
func (r Range) Indices() []uint64 {
	out := make([]uint64, 0, r.Len())
	for i := r.Newest; i >= r.Oldest; i-- {
		out = append(out, i)
		if i == r.Oldest {
			break
		}
	}
	return out
}

// Pages returns ceil(total/perPage).
func Pages(total, perPage uint64) uint64 {
	if perPage == 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return pages
}

// Window returns the indices shown on page when total records exist. Page 1
// holds the newest perPage records; the last page may be shorter.
func Window(total, page, perPage uint64) (Range, error) {
	if page == 0 {
		return Range{}, ErrZeroPage
	}
	if perPage == 0 {
		return Range{}, ErrZeroPerPage
	}
	// an empty set has no pages, so every page is out of bounds
	if page > Pages(total, perPage) {
		return Range{}, ErrOutOfBounds
	}

	newest := total - (page-1)*perPage
	oldest := uint64(1)
	if newest > perPage {
		oldest = newest - perPage + 1
	}
	return Range{Newest: newest, Oldest: oldest}, nil
}
