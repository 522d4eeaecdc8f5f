package enums

import "testing"

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusPendingPayment:  false,
		OrderStatusPaid:            false,
		OrderStatusReturnRequested: false,
		OrderStatusReturned:        true,
		OrderStatusCancelled:       true,
		OrderStatusExpired:         true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s terminal=%v, want %v", status, got, want)
		}
		if !status.IsValid() {
			t.Fatalf("%s should be valid", status)
		}
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestCallerRoleHistoryActor(t *testing.T) {
	cases := map[CallerRole]HistoryActor{
		CallerRoleAdmin:    HistoryActorAdmin,
		CallerRoleCustomer: HistoryActorUser,
		CallerRoleGuest:    HistoryActorGuest,
		CallerRoleSystem:   HistoryActorSystem,
	}
	for role, want := range cases {
		if got := role.HistoryActor(); got != want {
			t.Fatalf("%s -> %s, want %s", role, got, want)
		}
	}
}

func TestCurrencyExponent(t *testing.T) {
	if CurrencyJPY.Exponent() != 0 {
		t.Fatalf("JPY has no minor units")
	}
	if Currency("XXX").Exponent() != 2 {
		t.Fatalf("unknown currencies default to two decimals")
	}
	c, err := ParseCurrency(" eur ")
	if err != nil || c != CurrencyEUR {
		t.Fatalf("expected EUR, got %q (%v)", c, err)
	}
}
