package paymentterms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpectedPaymentDate(t *testing.T) {
	cases := []struct {
		name string
		term PaymentTerm
		base time.Time
		want time.Time
	}{
		{
			name: "month-end closing, paid end of next month",
			term: PaymentTerm{ClosingDay: 0, PaymentMonthOffset: 1, PaymentDay: 0},
			base: date(2026, time.January, 15),
			want: date(2026, time.February, 28),
		},
		{
			name: "base after closing rolls to next cycle",
			term: PaymentTerm{ClosingDay: 20, PaymentMonthOffset: 1, PaymentDay: 10},
			base: date(2026, time.January, 25),
			want: date(2026, time.March, 10),
		},
		{
			name: "base on closing day stays in cycle",
			term: PaymentTerm{ClosingDay: 20, PaymentMonthOffset: 1, PaymentDay: 10},
			base: date(2026, time.January, 20),
			want: date(2026, time.February, 10),
		},
		{
			name: "payment day zero clamps to month end",
			term: PaymentTerm{ClosingDay: 31, PaymentMonthOffset: 2, PaymentDay: 0},
			base: date(2026, time.January, 31),
			want: date(2026, time.March, 31),
		},
		{
			name: "payment day beyond month length clamps",
			term: PaymentTerm{ClosingDay: 0, PaymentMonthOffset: 1, PaymentDay: 31},
			base: date(2026, time.January, 10),
			want: date(2026, time.February, 28),
		},
		{
			name: "leap year february",
			term: PaymentTerm{ClosingDay: 0, PaymentMonthOffset: 1, PaymentDay: 0},
			base: date(2024, time.January, 5),
			want: date(2024, time.February, 29),
		},
		{
			name: "zero offset pays in closing month",
			term: PaymentTerm{ClosingDay: 0, PaymentMonthOffset: 0, PaymentDay: 25},
			base: date(2026, time.April, 3),
			want: date(2026, time.April, 25),
		},
		{
			name: "december closing crosses year boundary",
			term: PaymentTerm{ClosingDay: 20, PaymentMonthOffset: 1, PaymentDay: 5},
			base: date(2025, time.December, 28),
			want: date(2026, time.February, 5),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.term.ExpectedPaymentDate(tc.base)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTermableTypeValid(t *testing.T) {
	require.True(t, TermableClient.Valid())
	require.True(t, TermablePartner.Valid())
	require.False(t, TermableType("EMPLOYEE").Valid())
}
