package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.50", true},
		{"-4", "-4.00", true},
		{"0", "0.00", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "%q", tc.in)
			continue
		}
		require.NoError(t, err, "%q", tc.in)
		assert.Equal(t, tc.out, got.String(), "%q", tc.in)
	}
}

func TestMoneyStringRoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "1.01", MustParseMoney("1.005").String())
	assert.Equal(t, "42.50", MustParseMoney("42.5").String())
	assert.Equal(t, "0.00", Zero.String())
}

func TestMoneyWholeCents(t *testing.T) {
	for in, want := range map[string]bool{
		"12":      true,
		"12.3":    true,
		"12.34":   true,
		"12.3400": true,
		"-0.01":   true,
		"12.345":  false,
		"0.001":   false,
	} {
		assert.Equal(t, want, MustParseMoney(in).WholeCents(), in)
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	total := Zero
	for i := 0; i < 10; i++ {
		total = total.Add(MustParseMoney("0.1"))
	}
	assert.True(t, total.Equal(MustParseMoney("1")))
	assert.Equal(t, "0.90", total.Sub(MustParseMoney("0.1")).String())
	assert.Equal(t, "12.34", NewMoney(1234).String())
}

func TestMoneyFormat(t *testing.T) {
	assert.Equal(t, "42.50 €", MustParseMoney("42.5").Format("€"))
	assert.Equal(t, "0.00 $", Zero.Format("$"))
}

func TestMoneyPercent(t *testing.T) {
	assert.InDelta(t, 80.0, MustParseMoney("80").Percent(MustParseMoney("100")), 0.0001)
	assert.Equal(t, 0.0, MustParseMoney("80").Percent(Zero))
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{MustParseMoney("12.30")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.3}`, string(b))

	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":7.25,"b":"3,5"}`), &v))
	assert.Equal(t, "7.25", v.A.String())
	assert.Equal(t, "3.50", v.B.String())
}

func TestMoneySQL(t *testing.T) {
	v, err := MustParseMoney("19.99").Value()
	require.NoError(t, err)
	assert.Equal(t, "19.99", v)

	var m Money
	require.NoError(t, m.Scan("5.10"))
	assert.Equal(t, "5.10", m.String())
	require.NoError(t, m.Scan(int64(3)))
	assert.Equal(t, "3.00", m.String())
}
