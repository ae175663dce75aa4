package core

import "testing"

func TestParseAmount(t *testing.T) {
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
		{".5", "0.50", true},
		{"1.005", "1.01", true}, // half-up rounding
		{"12.344", "12.34", true},
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.004", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"92233720368547758.08", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestMoneyCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 12345, -250} {
		if got := MoneyFromCents(cents).Cents(); got != cents {
			t.Fatalf("cents %d round-tripped to %d", cents, got)
		}
	}
	if MoneyFromCents(1050).String() != "10.50" {
		t.Fatalf("unexpected string %s", MoneyFromCents(1050))
	}
}

func TestMoneyFitsCents(t *testing.T) {
	cases := map[string]bool{
		"0":                     true,
		"92233720368547758.07":  true,
		"92233720368547758.08":  false,
		"-92233720368547758.08": true,
		"-92233720368547758.09": false,
	}
	for in, want := range cases {
		if got := MustMoney(in).FitsCents(); got != want {
			t.Fatalf("%s: FitsCents() = %v, want %v", in, got, want)
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	sum := Money{}
	tenth := MustMoney("0.10")
	for i := 0; i < 10; i++ {
		sum = sum.Add(tenth)
	}
	if !sum.Equal(MustMoney("1")) {
		t.Fatalf("expected exactly 1.00, got %s", sum)
	}
	if !MustMoney("5").Sub(MustMoney("7.5")).Equal(MustMoney("-2.5")) {
		t.Fatal("subtraction lost precision")
	}
}

func TestMoneyDisplay(t *testing.T) {
	if got := MustMoney("1500").Display("USD"); got != "$1,500.00" {
		t.Fatalf("unexpected display %q", got)
	}
	if got := MustMoney("3.2").Display("NOPE"); got != "3.20" {
		t.Fatalf("unknown currency should fall back, got %q", got)
	}
}
