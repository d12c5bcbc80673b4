package market

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"0.25", "250000000000000000"},
		{"0.5", "500000000000000000"},
		{".5", "500000000000000000"},
		{"2.000000000000000001", "2000000000000000001"},
		{"0.000000000000000001", "1"},
		{"-3.5", "-3500000000000000000"},
		{"+1.0", "1000000000000000000"},
		{"0", "0"},
		{" 1.5 ", "1500000000000000000"},
		{"1000", "1000000000000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseEther(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseEtherRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"", ".", "-", "abc", "1e18", "1.2.3", "0x10", "1,5",
		"0.0000000000000000001", // 19 fractional digits
		"NaN", "Infinity",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseEther(in)
			assert.Error(t, err)
		})
	}
}

func TestFormatEther(t *testing.T) {
	t.Parallel()

	cases := []struct {
		wei  string
		want string
	}{
		{"1000000000000000000", "1"},
		{"250000000000000000", "0.25"},
		{"1", "0.000000000000000001"},
		{"0", "0"},
		{"-3500000000000000000", "-3.5"},
		{"1000000000000000000000", "1000"},
		{"1500000000000000000", "1.5"},
	}
	for _, tc := range cases {
		wei, ok := new(big.Int).SetString(tc.wei, 10)
		require.True(t, ok)
		assert.Equal(t, tc.want, FormatEther(wei))
	}

	assert.Equal(t, "0", FormatEther(nil))
}

func TestParseFormatRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"1", "0.25", "123.456789", "0.000000000000000001"} {
		wei, err := ParseEther(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatEther(wei))
	}
}
