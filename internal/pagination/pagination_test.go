package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, perPage uint64
		want                 []uint64
		err                  error
	}{
		{"three on one page", 3, 1, 10, []uint64{3, 2, 1}, nil},
		{"page past the end", 3, 2, 10, nil, ErrOutOfBounds},
		{"zero page", 3, 0, 10, nil, ErrZeroPage},
		{"zero per page", 3, 1, 0, nil, ErrZeroPerPage},
		{"empty ledger", 0, 1, 10, nil, ErrOutOfBounds},
		{"exact multiple last page", 6, 2, 3, []uint64{3, 2, 1}, nil},
		{"short last page", 7, 3, 3, []uint64{1}, nil},
		{"first of several", 7, 1, 3, []uint64{7, 6, 5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Window(tt.total, tt.page, tt.perPage)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Indices())
		})
	}
}

func TestWindowCoversEveryIndexOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint64Range(1, 500).Draw(t, "total")
		perPage := rapid.Uint64Range(1, 50).Draw(t, "perPage")

		var seen []uint64
		for page := uint64(1); page <= Pages(total, perPage); page++ {
			r, err := Window(total, page, perPage)
			if err != nil {
				t.Fatalf("page %d: %v", page, err)
			}
			if page < Pages(total, perPage) && uint64(r.Len()) != perPage {
				t.Fatalf("page %d has %d items, want %d", page, r.Len(), perPage)
			}
			seen = append(seen, r.Indices()...)
		}
		if uint64(len(seen)) != total {
			t.Fatalf("saw %d indices, want %d", len(seen), total)
		}
		for i, idx := range seen {
			if idx != total-uint64(i) {
				t.Fatalf("position %d holds %d, want %d", i, idx, total-uint64(i))
			}
		}
	})
}
