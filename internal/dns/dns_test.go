package dns

import (
	"context"
	"testing"
)

func TestLookup_IPLiteral(t *testing.T) {
	for _, ip := range []string{"127.0.0.1", "::1"} {
		got, err := Lookup(context.Background(), ip)
		if err != nil || got != ip {
			t.Fatalf("Lookup(%q) = %q, %v", ip, got, err)
		}
	}
}

func TestPreferIPv4(t *testing.T) {
	got, err := preferIPv4([]string{"::1", "10.0.0.1"})
	if err != nil || got != "10.0.0.1" {
		t.Fatalf("preferIPv4 = %q, %v", got, err)
	}
	got, err = preferIPv4([]string{"::1"})
	if err != nil || got != "::1" {
		t.Fatalf("preferIPv4 v6 only = %q, %v", got, err)
	}
	if _, err := preferIPv4(nil); err == nil {
		t.Fatalf("preferIPv4(nil) should fail")
	}
}

func TestTrimBrackets(t *testing.T) {
	if trimBrackets("[2606:4700:4700::1111]") != "2606:4700:4700::1111" || trimBrackets("1.1.1.1") != "1.1.1.1" {
		t.Fatalf("trimBrackets is off")
	}
}
