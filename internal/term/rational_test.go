package term

import (
	"math/big"
	"testing"
)

func r(num, den int64) Rational {
	return NewRational(big.NewInt(num), big.NewInt(den))
}

// TestNewRational tests creation and normalization.
func TestNewRational(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		wantNum  int64
		wantDen  int64
	}{
		{"simple fraction", 3, 4, 3, 4},
		{"reduces to lowest terms", 6, 8, 3, 4},
		{"negative numerator", -3, 4, -3, 4},
		{"negative denominator", 3, -4, -3, 4},
		{"both negative", -3, -4, 3, 4},
		{"zero numerator", 0, 5, 0, 1},
		{"integer (den=1)", 5, 1, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r(tt.num, tt.den)
			if got.Num().Int64() != tt.wantNum || got.Den().Int64() != tt.wantDen {
				t.Errorf("NewRational(%d, %d) = %s/%s, want %d/%d",
					tt.num, tt.den, got.Num(), got.Den(), tt.wantNum, tt.wantDen)
			}
		})
	}
}

func TestNewRationalPanicsOnZeroDen(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewRational(1, 0) did not panic")
		}
	}()
	r(1, 0)
}

func TestRationalAdd(t *testing.T) {
	tests := []struct {
		name             string
		a, b             Rational
		wantNum, wantDen int64
	}{
		{"simple addition", r(1, 2), r(1, 3), 5, 6},
		{"same denominator", r(1, 4), r(2, 4), 3, 4},
		{"with negative", r(3, 4), r(-1, 2), 1, 4},
		{"zero", r(3, 4), r(0, 1), 3, 4},
		{"integers", r(2, 1), r(3, 1), 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Add(tt.b)
			if got.Num().Int64() != tt.wantNum || got.Den().Int64() != tt.wantDen {
				t.Errorf("%s + %s = %s, want %d/%d", tt.a, tt.b, got, tt.wantNum, tt.wantDen)
			}
		})
	}
}

func TestRationalCmp(t *testing.T) {
	if r(1, 2).Cmp(r(2, 4)) != 0 {
		t.Error("1/2 should equal 2/4")
	}
	if r(1, 3).Cmp(r(1, 2)) >= 0 {
		t.Error("1/3 should be less than 1/2")
	}
	if r(-1, 2).Cmp(r(0, 1)) >= 0 {
		t.Error("-1/2 should be less than 0")
	}
}

func TestRationalLargeValues(t *testing.T) {
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	big2, _ := new(big.Int).SetString("2", 10)
	got := NewRational(big1, big2)
	if !got.IsInteger() {
		t.Fatalf("expected integer result, got %s", got)
	}
}
