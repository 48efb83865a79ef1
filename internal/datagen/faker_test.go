//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

// draw pulls one value of every kind the generator uses, so two fakers can
// be compared stream against stream.
func draw(f *Faker) string {
	start := time.Date(2009, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%s|%s|%s%s|%s|%d|%.2f",
		f.Country(), f.ProductName(), f.Digits(5), f.Letter(),
		f.DateRange(start, end).Format(time.RFC3339), f.Int(1, 12), f.Price(0.1, 5))
}

func TestSeededFakersAgree(t *testing.T) {
	a := NewFakerWithSeed(489434)
	b := NewFakerWithSeed(489434)
	for i := 0; i < 20; i++ {
		if va, vb := draw(a), draw(b); va != vb {
			t.Fatalf("draw %d differs: %q != %q", i, va, vb)
		}
	}
}

func TestStockCodePieces(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 50; i++ {
		code := f.Digits(5) + f.Letter()
		if len(code) != 6 {
			t.Fatalf("stock code %q should have 6 chars", code)
		}
		for _, c := range code[:5] {
			if c < '0' || c > '9' {
				t.Fatalf("stock code %q has a non-digit prefix", code)
			}
		}
		if c := code[5]; c < 'A' || c > 'Z' {
			t.Fatalf("stock code %q should end in an upper case letter", code)
		}
	}
}

func TestProductNamesAreUpperCase(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 20; i++ {
		name := f.ProductName()
		if name == "" || name != strings.ToUpper(name) {
			t.Fatalf("product name %q should be non-empty upper case", name)
		}
	}
}

func TestUnitPricesInCents(t *testing.T) {
	f := NewFakerWithSeed(7)
	for i := 0; i < 200; i++ {
		price := f.Price(0.19, 12.75)
		if price < 0.19 || price > 12.75 {
			t.Fatalf("price %v outside [0.19, 12.75]", price)
		}
		if cents := price * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
			t.Fatalf("price %v is not a whole number of cents", price)
		}
	}
}

func TestInvoiceDatesTruncatedToMinute(t *testing.T) {
	f := NewFaker()
	start := time.Date(2010, 12, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	for i := 0; i < 50; i++ {
		d := f.DateRange(start, end)
		if d.Before(start) || d.After(end) {
			t.Fatalf("date %v outside [%v, %v]", d, start, end)
		}
		if d.Second() != 0 || d.Nanosecond() != 0 {
			t.Fatalf("date %v carries seconds", d)
		}
	}
}

func TestChanceBounds(t *testing.T) {
	f := NewFaker()
	tests := []struct {
		p    float64
		want bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{2, true},
	}
	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			if got := f.Chance(tt.p); got != tt.want {
				t.Fatalf("Chance(%v) = %v, want %v", tt.p, got, tt.want)
			}
		}
	}
}

func TestChooseCountries(t *testing.T) {
	f := NewFakerWithSeed(3)
	countries := []string{"United Kingdom", "France", "EIRE"}
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		c := Choose(f, countries)
		if c != "United Kingdom" && c != "France" && c != "EIRE" {
			t.Fatalf("Choose returned %q", c)
		}
		seen[c] = true
	}
	if len(seen) != len(countries) {
		t.Errorf("200 draws reached only %v", seen)
	}

	if got := Choose(f, []int64(nil)); got != 0 {
		t.Errorf("Choose on nil slice = %d, want 0", got)
	}
}

func TestChooseWeightedFavoursHomeCountry(t *testing.T) {
	f := NewFakerWithSeed(11)
	countries := []string{"United Kingdom", "Germany", "France"}
	weights := []int{90, 5, 5}

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		counts[ChooseWeighted(f, countries, weights)]++
	}
	if counts["United Kingdom"] < 800 {
		t.Errorf("home country drawn %d times out of 1000: %v", counts["United Kingdom"], counts)
	}

	if got := ChooseWeighted(f, []string{}, nil); got != "" {
		t.Errorf("ChooseWeighted on empty input = %q", got)
	}
}

func BenchmarkChooseWeighted(b *testing.B) {
	f := NewFakerWithSeed(1)
	countries := []string{"United Kingdom", "Germany", "France", "EIRE", "Spain"}
	weights := []int{80, 6, 6, 5, 3}
	for i := 0; i < b.N; i++ {
		ChooseWeighted(f, countries, weights)
	}
}
