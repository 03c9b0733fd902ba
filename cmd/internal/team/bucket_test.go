package team

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTableYAML = `
buckets:
  - { type: A, min: 1,   max: 50,  category_id: a1 }
  - { type: A, min: 51,  max: 100, category_id: a2 }
  - { type: A, min: 101, max: 150, category_id: a3 }
  - { type: B, min: 1,   max: 50,  category_id: b1 }
  - { type: B, min: 51,  max: 100, category_id: b2 }
  - { type: B, min: 101, max: 150, category_id: b3 }
`

func mustTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := ParseTable([]byte(testTableYAML))
	require.NoError(t, err)
	return tbl
}

func TestTable_Category(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t)
	cases := []struct {
		team    string
		want    string
		wantErr bool
	}{
		{team: "A001", want: "a1"},
		{team: "A050", want: "a1"},
		{team: "A051", want: "a2"},
		{team: "A100", want: "a2"},
		{team: "A150", want: "a3"},
		{team: "B001", want: "b1"},
		{team: "B075", want: "b2"},
		{team: "B150", want: "b3"},
		{team: "a7", want: "a1"},
		{team: "A151", wantErr: true},
		{team: "B151", wantErr: true},
		{team: "C001", wantErr: true},
		{team: "A000", wantErr: true},
		{team: "7", wantErr: true},
		{team: "Axyz", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.team, func(t *testing.T) {
			t.Parallel()
			id, err := ParseID(tc.team)
			if err == nil {
				var cat string
				cat, err = tbl.Category(id)
				if !tc.wantErr {
					require.NoError(t, err)
					assert.Equal(t, tc.want, cat)
					return
				}
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTeamAssignment)
		})
	}
}

func TestChannelName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		team string
		want string
	}{
		{team: "A7", want: "Team A007 🦾"},
		{team: "B120", want: "Team B120 🤺"},
		{team: "A050", want: "Team A050 🦿"},
	}
	for _, tc := range cases {
		id, err := ParseID(tc.team)
		require.NoError(t, err)
		assert.Equal(t, tc.want, id.ChannelName())
	}
}

func TestNewTable_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		buckets []Bucket
	}{
		{name: "empty", buckets: nil},
		{name: "lower type", buckets: []Bucket{{Type: "a", Min: 1, Max: 2, CategoryID: "c"}}},
		{name: "long type", buckets: []Bucket{{Type: "AB", Min: 1, Max: 2, CategoryID: "c"}}},
		{name: "zero min", buckets: []Bucket{{Type: "A", Min: 0, Max: 2, CategoryID: "c"}}},
		{name: "inverted", buckets: []Bucket{{Type: "A", Min: 5, Max: 2, CategoryID: "c"}}},
		{name: "no category", buckets: []Bucket{{Type: "A", Min: 1, Max: 2}}},
		{name: "overlap", buckets: []Bucket{
			{Type: "A", Min: 1, Max: 50, CategoryID: "c1"},
			{Type: "A", Min: 50, Max: 100, CategoryID: "c2"},
		}},
	}
	for _, tc := range cases {
		_, err := NewTable(tc.buckets)
		assert.ErrorIs(t, err, ErrInvalidBucketTable, tc.name)
	}

	// Same range for different types is fine.
	_, err := NewTable([]Bucket{
		{Type: "A", Min: 1, Max: 50, CategoryID: "c1"},
		{Type: "B", Min: 1, Max: 50, CategoryID: "c2"},
	})
	require.NoError(t, err)
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "buckets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testTableYAML), 0o600))
	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Buckets(), 6)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseTable([]byte("buckets: [oops"))
	require.ErrorIs(t, err, ErrInvalidBucketTable)
}
