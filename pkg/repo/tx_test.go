package repo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	cases := []struct {
		name    string
		n, size int
		want    [][2]int
	}{
		{"empty", 0, 10, nil},
		{"exact", 4, 2, [][2]int{{0, 2}, {2, 4}}},
		{"remainder", 5, 2, [][2]int{{0, 2}, {2, 4}, {4, 5}}},
		{"larger size", 3, 100, [][2]int{{0, 3}}},
		{"non-positive size", 3, 0, [][2]int{{0, 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Chunk(tc.n, tc.size))
		})
	}
}
