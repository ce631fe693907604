package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FAB_TEST_INT", "nope")
	if got := Int("FAB_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("FAB_TEST_INT", " 12 ")
	if got := Int("FAB_TEST_INT", 7); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"true": true, "1": true, "off": false, "NO": false}
	for raw, want := range cases {
		t.Setenv("FAB_TEST_BOOL", raw)
		if got := Bool("FAB_TEST_BOOL", !want); got != want {
			t.Fatalf("Bool(%q): want=%v got=%v", raw, want, got)
		}
	}
	t.Setenv("FAB_TEST_BOOL", "maybe")
	if !Bool("FAB_TEST_BOOL", true) {
		t.Fatalf("Bool: expected default for unparseable value")
	}
}

func TestSecondsClampsNegative(t *testing.T) {
	t.Setenv("FAB_TEST_SECONDS", "-4")
	if got := Seconds("FAB_TEST_SECONDS", 3); got != 0 {
		t.Fatalf("Seconds: want=0 got=%s", got)
	}
	t.Setenv("FAB_TEST_SECONDS", "")
	if got := Seconds("FAB_TEST_SECONDS", 3); got != 3*time.Second {
		t.Fatalf("Seconds: want=3s got=%s", got)
	}
}
