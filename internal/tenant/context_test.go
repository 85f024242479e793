package tenant

import (
	"context"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	ctx := Set(context.Background(), "demo")
	got, err := Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "demo" {
		t.Fatalf("got %q, want %q", got, "demo")
	}
}

func TestGetWithoutSet(t *testing.T) {
	_, err := Get(context.Background())
	if err != ErrNoTenant {
		t.Fatalf("got %v, want ErrNoTenant", err)
	}
}

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"demo":          true,
		"tenant-1":      true,
		"tenant_1":      true,
		"":              false,
		"Demo":          false,
		"has space":     false,
		"semi;colon":    false,
	}
	for id, want := range cases {
		if got := Valid(id); got != want {
			t.Errorf("Valid(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestMustGetPanicsWithoutSet(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic")
		}
	}()
	MustGet(context.Background())
}
