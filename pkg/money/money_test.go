package money

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", value, err)
	}
	return d
}

func TestLineTotal(t *testing.T) {
	total, err := LineTotal(3, dec(t, "10.00"))
	if err != nil {
		t.Fatalf("LineTotal error: %v", err)
	}
	if !total.Equal(dec(t, "30.00")) {
		t.Fatalf("expected 30.00, got %s", total)
	}

	total, err = LineTotal(3, dec(t, "0.335"))
	if err != nil {
		t.Fatalf("LineTotal error: %v", err)
	}
	if !total.Equal(dec(t, "1.01")) {
		t.Fatalf("expected rounding to 1.01, got %s", total)
	}
}

func TestLineTotalRejectsNonPositiveInputs(t *testing.T) {
	if _, err := LineTotal(0, dec(t, "10.00")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := LineTotal(-2, dec(t, "10.00")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
	if _, err := LineTotal(1, dec(t, "0")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
	if _, err := LineTotal(1, dec(t, "-5.00")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestSum(t *testing.T) {
	total := Sum(dec(t, "30.00"), dec(t, "25.00"))
	if !total.Equal(dec(t, "55.00")) {
		t.Fatalf("expected 55.00, got %s", total)
	}
	if !Sum().Equal(Zero()) {
		t.Fatalf("empty sum should be zero")
	}
}

func TestSumNoDriftOnRepeatedRounding(t *testing.T) {
	items := []decimal.Decimal{dec(t, "10.10"), dec(t, "20.20"), dec(t, "0.03")}
	first := Sum(items...)
	second := Sum(items...)
	if !first.Equal(second) {
		t.Fatalf("sum is not stable: %s vs %s", first, second)
	}
}

func TestParse(t *testing.T) {
	amount, err := Parse("1500.00")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !amount.Equal(dec(t, "1500.00")) {
		t.Fatalf("expected 1500.00, got %s", amount)
	}

	if _, err := Parse("abc"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for garbage, got %v", err)
	}
	if _, err := Parse("-1.00"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative, got %v", err)
	}
}

func TestSubunitsRoundTrip(t *testing.T) {
	if got := Subunits(dec(t, "1500.00")); got != 150000 {
		t.Fatalf("expected 150000 subunits, got %d", got)
	}
	if got := FromSubunits(150000); !got.Equal(dec(t, "1500.00")) {
		t.Fatalf("expected 1500.00, got %s", got)
	}
}
