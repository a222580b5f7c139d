package fixedpoint

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestArithmeticOverflow(t *testing.T) {
	tests := []struct {
		name string
		fn   func() U128
	}{
		{"add past max", func() U128 { return Max().Add(New(1)) }},
		{"sub below zero", func() U128 { return New(1).Sub(New(2)) }},
		{"mul past max", func() U128 { return Max().Mul(New(2)) }},
		{"div by zero", func() U128 { return New(7).Div(Zero()) }},
		{"muldiv by zero", func() U128 { return New(7).MulDiv(New(3), Zero()) }},
		{"muldiv quotient too wide", func() U128 { return Max().MulDiv(New(3), New(2)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Try(func() error {
				tt.fn()
				return nil
			})
			var ae *ArithmeticError
			require.Error(t, err)
			assert.True(t, errors.As(err, &ae))
		})
	}
}

func TestMulDivKeepsWideIntermediate(t *testing.T) {
	// Max * 2 does not fit in 128 bits but the quotient does.
	got := Max().MulDiv(New(2), New(4))
	want := Max().Div(New(2))
	assert.True(t, got.Eq(want), "got %s want %s", got, want)
}

func TestIsqrt(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 0}, {1, 1}, {3, 1}, {4, 2}, {99, 9}, {250_000_000_000_000_000, 500_000_000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.in).Isqrt().Uint64(), "isqrt(%d)", tt.in)
	}
}

func TestTryPassesThroughOtherErrors(t *testing.T) {
	sentinel := errors.New("boom")
	assert.ErrorIs(t, Try(func() error { return sentinel }), sentinel)
}

func TestJSONAndScanRoundTrip(t *testing.T) {
	v := MustFromDecimal("340282366920938463463374607431768211455")

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"340282366920938463463374607431768211455"`, string(b))

	var back U128
	require.NoError(t, json.Unmarshal([]byte(`12345`), &back))
	assert.Equal(t, uint64(12345), back.Uint64())

	var scanned U128
	require.NoError(t, scanned.Scan([]byte("100000000")))
	assert.True(t, scanned.Eq(New(100_000_000)))

	_, err = FromDecimal("340282366920938463463374607431768211456")
	assert.Error(t, err)
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "0.5", New(50_000_000).Decimal(8).String())
}

func TestSubAddInverse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := New(rapid.Uint64().Draw(t, "a"))
		b := New(rapid.Uint64().Draw(t, "b"))
		sum := a.Add(b)
		if !sum.Sub(b).Eq(a) {
			t.Fatalf("(%s + %s) - %s != %s", a, b, b, a)
		}
		if _, ok := a.CheckedSub(sum.Add(New(1))); ok {
			t.Fatalf("CheckedSub should fail when subtrahend is larger")
		}
	})
}

func TestMulDivMatchesMulThenDiv(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := New(rapid.Uint64().Draw(t, "a"))
		b := New(rapid.Uint64().Draw(t, "b"))
		c := New(rapid.Uint64Range(1, 1<<63).Draw(t, "c"))
		if !a.MulDiv(b, c).Eq(a.Mul(b).Div(c)) {
			t.Fatalf("MulDiv(%s, %s, %s) mismatch", a, b, c)
		}
	})
}
