package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
		err  bool
	}{
		{"100.00", 10000, false},
		{"100", 10000, false},
		{"0.5", 50, false},
		{"5.05", 505, false},
		{"1.000", 100, false},
		{"-3.10", -310, false},
		{"1.005", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.err {
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Parse(%q): expected validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("Parse(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestFee(t *testing.T) {
	cases := []struct {
		amount Cents
		bps    int64
		want   Cents
	}{
		{10000, 500, 500},
		{999, 500, 50}, // 49.95 rounds half up
		{1, 500, 0},
		{10000, 0, 0},
		{0, 500, 0},
	}
	for _, tc := range cases {
		if got := Fee(tc.amount, tc.bps); got != tc.want {
			t.Errorf("Fee(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestJSON(t *testing.T) {
	var v struct {
		A Cents `json:"a"`
		B Cents `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"95.00","b":12.5}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 9500 || v.B != 1250 {
		t.Errorf("unexpected values %+v", v)
	}

	out, _ := json.Marshal(v)
	if string(out) != `{"a":"95.00","b":"12.50"}` {
		t.Errorf("unexpected json %s", out)
	}

	if err := json.Unmarshal([]byte(`{"a":"1.234"}`), &v); err == nil {
		t.Error("expected error for three decimal places")
	}
}

func TestRequirePositive(t *testing.T) {
	if err := RequirePositive("amount", 0); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := RequirePositive("amount", 1); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
