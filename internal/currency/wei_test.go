package currency

import (
	"math/big"
	"testing"
)

func TestToBaseUnitsRoundTrip(t *testing.T) {
	cases := []string{
		"1",
		"0.5",
		"1.5",
		"0.000000000000000001",
		"123456789.123456789123456789",
		"9007199254740993", // above 2^53
	}
	for _, in := range cases {
		wei, err := ToBaseUnits(in)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q): %v", in, err)
		}
		out := FormatBaseUnits(wei)
		wei2, err := ToBaseUnits(out)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q): %v", out, err)
		}
		if wei.Cmp(wei2) != 0 {
			t.Fatalf("round trip mismatch for %q: %s vs %s", in, wei, wei2)
		}
	}
}

func TestToBaseUnitsExactScaling(t *testing.T) {
	wei, err := ToBaseUnits("1.5")
	if err != nil {
		t.Fatalf("ToBaseUnits: %v", err)
	}
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, wei)
	}
}

func TestToBaseUnitsRejectsTooManyDecimals(t *testing.T) {
	if _, err := ToBaseUnits("1.0000000000000000001"); err == nil {
		t.Fatal("expected error for 19 decimal places")
	}
}

func TestToBaseUnitsRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1..2", "1,5"} {
		if _, err := ToBaseUnits(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestToPositiveBaseUnits(t *testing.T) {
	if _, err := ToPositiveBaseUnits("0"); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := ToPositiveBaseUnits("-1"); err == nil {
		t.Fatal("expected error for negative amount")
	}
	wei, err := ToPositiveBaseUnits("2")
	if err != nil {
		t.Fatalf("ToPositiveBaseUnits: %v", err)
	}
	want, _ := new(big.Int).SetString("2000000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, wei)
	}
}

func TestFormatBaseUnitsLargeValue(t *testing.T) {
	wei, _ := new(big.Int).SetString("123456789123456789123456789", 10)
	if got := FormatBaseUnits(wei); got != "123456789.123456789123456789" {
		t.Fatalf("unexpected format: %s", got)
	}
}

func TestFormatBaseUnitsNil(t *testing.T) {
	if got := FormatBaseUnits(nil); got != "0" {
		t.Fatalf("unexpected format for nil: %s", got)
	}
}
