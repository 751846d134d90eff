package rut

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	cases := []struct {
		body string
		dv   byte
	}{
		{"12345678", '5'},
		{"11111111", '1'},
		{"7775777", '5'},
		{"11111112", 'K'},
		{"999999", 'K'},
		{"1", '9'},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			assert.Equal(t, string(tc.dv), string(CheckDigit(tc.body)))
		})
	}
}

func TestValid(t *testing.T) {
	cases := []struct {
		rut  string
		want bool
	}{
		{"12345678-5", true},
		{"12.345.678-5", true},
		{"11111112-K", true},
		{"11111112-k", true},
		{"12345678-0", false},
		{"12345678-K", false},
		{"", false},
		{"-5", false},
		{"12A45678-5", false},
		{"12345678-X", false},
		{"5", false},
	}
	for _, tc := range cases {
		t.Run(tc.rut, func(t *testing.T) {
			assert.Equal(t, tc.want, Valid(tc.rut))
		})
	}
}

// Any single-character mutation of a valid check digit must be rejected.
func TestValidRejectsMutatedCheckDigit(t *testing.T) {
	bodies := []string{"1", "999999", "7775777", "12345678", "11111112"}
	alphabet := "0123456789K"
	for _, body := range bodies {
		good := CheckDigit(body)
		require.True(t, Valid(body+"-"+string(good)), "body %s dv %c", body, good)
		for i := 0; i < len(alphabet); i++ {
			dv := alphabet[i]
			if dv == good {
				continue
			}
			assert.False(t, Valid(fmt.Sprintf("%s-%c", body, dv)),
				"body %s mutated dv %c must fail", body, dv)
		}
	}
}

func TestValidSplit(t *testing.T) {
	assert.True(t, ValidSplit("12345678", "5"))
	assert.True(t, ValidSplit("11111112", "K"))
	assert.False(t, ValidSplit("12345678", "0"))
	assert.False(t, ValidSplit("", "5"))
	assert.False(t, ValidSplit("12345678", ""))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678-5", Format("123456785"))
	assert.Equal(t, "12.345.678-5", Format("12.345.678-5"))
	assert.Equal(t, "1.234-3", Format("12343"))
	assert.Equal(t, "1-9", Format("19"))
	assert.Equal(t, "9", Format("9"))
}

func TestCombine(t *testing.T) {
	assert.Equal(t, "12.345.678-5", Combine("12345678", "5"))
	assert.Equal(t, "12.345.678-5", Combine("12.345.678", "5"))
	assert.Equal(t, "11.111.112-K", Combine("11111112", "k"))
	assert.Equal(t, "", Combine("", "5"))
	assert.Equal(t, "", Combine("12345678", ""))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "12345678K", Clean(" 12.345.678-k "))
	assert.Equal(t, "123456785", Clean("12345678-5"))
}

func TestBody(t *testing.T) {
	assert.Equal(t, "12345678", Body("12.345.678-5"))
}
