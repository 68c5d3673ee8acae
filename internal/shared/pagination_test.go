package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginationDefaultsAndCap(t *testing.T) {
	cases := []struct {
		name        string
		page        int
		perPage     int
		total       int
		wantPage    int
		wantPerPage int
		wantPages   int
		wantOffset  int
	}{
		{"defaults", 0, 0, 45, 1, 20, 3, 0},
		{"negative inputs snap", -3, -1, 45, 1, 20, 3, 0},
		{"per_page capped", 1, 500, 1000, 1, 100, 10, 0},
		{"second page offset", 2, 25, 60, 2, 25, 3, 25},
		{"empty result", 1, 20, 0, 1, 20, 0, 0},
		{"partial last page", 3, 10, 21, 3, 10, 3, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.perPage, tc.total)
			require.Equal(t, tc.wantPage, p.Page)
			require.Equal(t, tc.wantPerPage, p.PerPage)
			require.Equal(t, tc.total, p.Total)
			require.Equal(t, tc.wantPages, p.TotalPages)
			require.Equal(t, tc.wantOffset, p.Offset())
		})
	}
}
