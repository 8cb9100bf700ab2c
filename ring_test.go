package reactor

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorRing_Disabled(t *testing.T) {
	r := newErrorRing(0)
	if r != nil {
		t.Fatal("expected nil ring for size 0")
	}
	r.push(errors.New("ignored"))
	if r.all() != nil {
		t.Error("expected nil history from disabled ring")
	}
	r.clear()
}

func TestErrorRing_RetainsMostRecentOldestFirst(t *testing.T) {
	r := newErrorRing(3)
	for i := 1; i <= 5; i++ {
		r.push(fmt.Errorf("err-%d", i))
	}

	got := r.all()
	if len(got) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(got))
	}
	for i, want := range []string{"err-3", "err-4", "err-5"} {
		if got[i].Error() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i])
		}
	}
}

func TestErrorRing_PartialFill(t *testing.T) {
	r := newErrorRing(5)
	r.push(errors.New("only"))

	got := r.all()
	if len(got) != 1 || got[0].Error() != "only" {
		t.Errorf("unexpected history: %v", got)
	}
}

func TestErrorRing_Clear(t *testing.T) {
	r := newErrorRing(2)
	r.push(errors.New("a"))
	r.push(errors.New("b"))
	r.clear()

	if r.all() != nil {
		t.Error("expected empty history after clear")
	}
	r.push(errors.New("c"))
	got := r.all()
	if len(got) != 1 || got[0].Error() != "c" {
		t.Errorf("unexpected history after clear: %v", got)
	}
}
