package invariant

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func decs(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestShares_SumToExactlyHundred(t *testing.T) {
	tests := []struct {
		name    string
		amounts []decimal.Decimal
	}{
		{"six expense categories", decs("53.08", "18.41", "12.23", "6.09", "5.07", "5.12")},
		{"uneven whole amounts", decs("2654321", "920457", "611503", "304512", "253498", "255987")},
		{"thirds", decs("1", "1", "1")},
		{"sevenths", decs("1", "1", "1", "1", "1", "1", "1")},
		{"single category", decs("42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Shares(tt.amounts, PercentPlaces)
			if err != nil {
				t.Fatalf("Shares failed: %v", err)
			}
			if len(shares) != len(tt.amounts) {
				t.Fatalf("expected %d shares, got %d", len(tt.amounts), len(shares))
			}
			if sum := Sum(shares...); !sum.Equal(decimal.NewFromInt(100)) {
				t.Errorf("shares sum to %s, want 100", sum)
			}
		})
	}
}

func TestShares_ResidueGoesToLastCategory(t *testing.T) {
	shares, err := Shares(decs("1", "1", "1"), PercentPlaces)
	if err != nil {
		t.Fatalf("Shares failed: %v", err)
	}

	want := decs("33.33", "33.33", "33.34")
	for i := range want {
		if !shares[i].Equal(want[i]) {
			t.Errorf("share %d = %s, want %s", i, shares[i], want[i])
		}
	}
}

func TestShares_MatchesAmountOverTotal(t *testing.T) {
	amounts := decs("5308", "1841", "1223", "609", "507", "512")
	shares, err := Shares(amounts, PercentPlaces)
	if err != nil {
		t.Fatalf("Shares failed: %v", err)
	}

	want := decs("53.08", "18.41", "12.23", "6.09", "5.07", "5.12")
	for i := range want {
		if !shares[i].Equal(want[i]) {
			t.Errorf("share %d = %s, want %s", i, shares[i], want[i])
		}
	}
}

func TestShares_Errors(t *testing.T) {
	tests := []struct {
		name    string
		amounts []decimal.Decimal
		want    error
	}{
		{"empty", nil, ErrNoComponents},
		{"zero total", decs("0", "0", "0"), ErrZeroTotal},
		{"negative component", decs("10", "-1", "5"), ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Shares(tt.amounts, PercentPlaces)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAllocate(t *testing.T) {
	total := decimal.NewFromInt(1_000_001)
	parts, err := Allocate(total, decs("0.45", "0.35", "0.12", "0.08"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if sum := Sum(parts...); !sum.Equal(total) {
		t.Errorf("parts sum to %s, want %s", sum, total)
	}
	for i, p := range parts {
		if !p.Equal(p.Round(0)) {
			t.Errorf("part %d = %s, expected whole units", i, p)
		}
	}
	if !parts[0].Equal(decimal.NewFromInt(450000)) {
		t.Errorf("expected first part 450000, got %s", parts[0])
	}

	if _, err := Allocate(total, decs("0", "0")); !errors.Is(err, ErrZeroTotal) {
		t.Errorf("expected ErrZeroTotal, got %v", err)
	}
}

func TestMargin(t *testing.T) {
	m, err := Margin(decimal.NewFromInt(150), decimal.NewFromInt(1200))
	if err != nil {
		t.Fatalf("Margin failed: %v", err)
	}
	if !m.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("expected 12.5, got %s", m)
	}

	m, err = Margin(decimal.NewFromInt(-50), decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("Margin failed: %v", err)
	}
	if !m.Equal(decimal.RequireFromString("-16.67")) {
		t.Errorf("expected -16.67, got %s", m)
	}

	if _, err := Margin(decimal.NewFromInt(1), decimal.Zero); !errors.Is(err, ErrZeroTotal) {
		t.Errorf("expected ErrZeroTotal, got %v", err)
	}
}

func TestSubtractAndSum(t *testing.T) {
	a := decimal.NewFromInt(900)
	b := decimal.NewFromInt(1250)

	if got := Subtract(a, b); !got.Equal(decimal.NewFromInt(-350)) {
		t.Errorf("Subtract = %s, want -350", got)
	}
	if got := Sum(a, b, decimal.NewFromInt(-100)); !got.Equal(decimal.NewFromInt(2050)) {
		t.Errorf("Sum = %s, want 2050", got)
	}
	if got := Sum(); !got.IsZero() {
		t.Errorf("empty Sum = %s, want 0", got)
	}
}
