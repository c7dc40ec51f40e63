package razorpay

import (
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret")

	if !VerifySignature("order_1", "pay_1", sig, "secret") {
		t.Fatalf("expected valid signature")
	}
	cases := map[string][4]string{
		"wrong secret":        {"order_1", "pay_1", sig, "other"},
		"tampered payment id": {"order_1", "pay_2", sig, "secret"},
		"tampered order id":   {"order_2", "pay_1", sig, "secret"},
		"uppercase hex":       {"order_1", "pay_1", strings.ToUpper(sig), "secret"},
		"empty signature":     {"order_1", "pay_1", "", "secret"},
		"empty secret":        {"order_1", "pay_1", Sign("order_1", "pay_1", ""), ""},
	}
	for name, args := range cases {
		if VerifySignature(args[0], args[1], args[2], args[3]) {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestSignKnownVector(t *testing.T) {
	const want = "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb"
	if got := Sign("order_1", "pay_1", "secret"); got != want {
		t.Fatalf("unexpected signature %s", got)
	}
}

func TestClientVerifyPayment(t *testing.T) {
	client := NewClient(testConfig())
	sig := Sign("order_1", "pay_1", "shh")
	if !client.VerifyPayment("order_1", "pay_1", sig) {
		t.Fatalf("expected valid")
	}
	if client.VerifyPayment("order_1", "pay_1", Sign("order_1", "pay_1", "nope")) {
		t.Fatalf("expected invalid")
	}
}
