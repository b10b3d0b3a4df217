package session

import "testing"

func TestStoreGetSet(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(); ok {
		t.Error("Expected new store to be empty")
	}

	s.Set("abc")
	token, ok := s.Get()
	if !ok || token != "abc" {
		t.Errorf("Expected token abc, got %q (present=%v)", token, ok)
	}

	s.Set("def")
	token, _ = s.Get()
	if token != "def" {
		t.Errorf("Expected token replaced with def, got %q", token)
	}
}

func TestClearCascades(t *testing.T) {
	s := NewStore()
	s.Set("abc")

	calls := 0
	s.OnClear(func() { calls++ })
	s.OnClear(func() {
		if _, ok := s.Get(); ok {
			t.Error("Hook observed token still present during cascade")
		}
		calls++
	})

	s.Clear()
	if calls != 2 {
		t.Errorf("Expected both hooks to run, got %d calls", calls)
	}
}

func TestClearWhenAbsentIsNoop(t *testing.T) {
	s := NewStore()

	calls := 0
	s.OnClear(func() { calls++ })

	s.Clear()
	if calls != 0 {
		t.Errorf("Expected no hooks for already-absent token, got %d", calls)
	}
}

func TestSetEmptyCascades(t *testing.T) {
	s := NewStore()
	s.Set("abc")

	calls := 0
	s.OnClear(func() { calls++ })

	s.Set("")
	if calls != 1 {
		t.Errorf("Expected Set(\"\") to cascade like Clear, got %d calls", calls)
	}
	if _, ok := s.Get(); ok {
		t.Error("Expected token absent after Set(\"\")")
	}
}
