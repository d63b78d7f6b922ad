package platform

import "testing"

func TestDispatchKeyGoesToTopmostLayer(t *testing.T) {
	s := NewStack()
	var loGot, hiGot int
	s.Push(Keymap{Name: "game", OnKey: func(k int, _ any) { loGot = k }})
	s.Push(Keymap{Name: "console", OnKey: func(k int, _ any) { hiGot = k }})

	s.DispatchKey(42)

	if hiGot != 42 {
		t.Fatalf("topmost layer got %d, want 42", hiGot)
	}
	if loGot != 0 {
		t.Fatalf("lower layer should not have received the event, got %d", loGot)
	}
}

func TestPopRestoresLowerLayer(t *testing.T) {
	s := NewStack()
	var loGot int
	s.Push(Keymap{Name: "game", OnKey: func(k int, _ any) { loGot = k }})
	s.Push(Keymap{Name: "console", OnKey: func(k int, _ any) {}})

	s.Pop()
	s.DispatchKey(7)

	if loGot != 7 {
		t.Fatalf("after Pop, game layer got %d, want 7", loGot)
	}
	if s.Top() != "game" {
		t.Fatalf("Top() = %q, want game", s.Top())
	}
}

func TestDispatchOnEmptyStackIsNoop(t *testing.T) {
	s := NewStack()
	s.DispatchKey(1)
	s.DispatchMouseMotion(1, 2)
	if s.Len() != 0 {
		t.Fatalf("expected empty stack, got len %d", s.Len())
	}
}

func TestUserDataIsPassedThrough(t *testing.T) {
	s := NewStack()
	s.SetUserData("engine-context")
	var got any
	s.Push(Keymap{OnKey: func(_ int, udata any) { got = udata }})
	s.DispatchKey(1)
	if got != "engine-context" {
		t.Fatalf("udata = %v, want engine-context", got)
	}
}

func TestMouseMotionGoesToTopmostLayer(t *testing.T) {
	s := NewStack()
	var xg, yg float64
	s.Push(Keymap{OnMouseMove: func(xrel, yrel float64, _ any) { xg, yg = xrel, yrel }})
	s.DispatchMouseMotion(1.5, -2.5)
	if xg != 1.5 || yg != -2.5 {
		t.Fatalf("got (%v,%v), want (1.5,-2.5)", xg, yg)
	}
}
