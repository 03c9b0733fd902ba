package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{in: "a@b.co", want: true},
		{in: "first.last+tag@sub.example.org", want: true},
		{in: "not-an-email", want: false},
		{in: "a@b", want: false},
		{in: "a@b.c", want: false},
		{in: "", want: false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidEmail(tc.in), "ValidEmail(%q)", tc.in)
	}
}

func TestNormalizeTeamID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "canonical", in: "A007", want: "A007"},
		{name: "lower letter", in: "b12", want: "B012"},
		{name: "extra padding", in: "A00050", want: "A050"},
		{name: "wide number", in: "C1234", want: "C1234"},
		{name: "spaces", in: "  A1 ", want: "A001"},
		{name: "zero", in: "A000", wantErr: true},
		{name: "no letter", in: "007", wantErr: true},
		{name: "two letters", in: "AB1", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeTeamID(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got, err := Normalize(Input{Name: "  ada   LOVELACE ", Email: " ada@example.com ", TeamID: "a7"})
	require.NoError(t, err)
	assert.Equal(t, Input{Name: "Ada Lovelace", Email: "ada@example.com", TeamID: "A007"}, got)

	_, err = Normalize(Input{Name: "", Email: "a@b.co", TeamID: "A1"})
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	_, err = Normalize(Input{Name: "x", Email: "not-an-email", TeamID: "A1"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmailFingerprint(t *testing.T) {
	t.Parallel()

	a := EmailFingerprint("Ada@Example.com")
	b := EmailFingerprint(" ada@example.com")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, EmailFingerprint("bob@example.com"))
}
