package platform

// Keymap receives input events while it is the topmost layer of a Stack:
// the engine invokes a bound keymap stack for events, and the topmost
// keymap receives (key_code, udata) or (xrel, yrel, udata).
// Either method may be nil on a given Keymap if that layer ignores the
// event kind.
type Keymap struct {
	Name        string
	OnKey       func(keyCode int, udata any)
	OnMouseMove func(xrel, yrel float64, udata any)
}

// Stack is a push/pop stack of input layers: a console overlay pushed on
// top of the gameplay keymap intercepts every key until it is popped,
// without the gameplay layer needing to know it was suspended.
type Stack struct {
	layers []Keymap
	udata  any
}

// NewStack returns an empty keymap stack.
func NewStack() *Stack { return &Stack{} }

// SetUserData sets the opaque value passed to every OnKey/OnMouseMove
// call, mirroring the collaborator contract's `udata` parameter.
func (s *Stack) SetUserData(udata any) { s.udata = udata }

// Push installs km as the new topmost layer.
func (s *Stack) Push(km Keymap) { s.layers = append(s.layers, km) }

// Pop removes the topmost layer, if any.
func (s *Stack) Pop() {
	if n := len(s.layers); n > 0 {
		s.layers = s.layers[:n-1]
	}
}

// Top returns the topmost layer's name, or "" if the stack is empty.
func (s *Stack) Top() string {
	if n := len(s.layers); n > 0 {
		return s.layers[n-1].Name
	}
	return ""
}

// Len reports how many layers are on the stack.
func (s *Stack) Len() int { return len(s.layers) }

// DispatchKey routes a key event to the topmost layer's OnKey, if bound,
// passing the stack's bound user data.
func (s *Stack) DispatchKey(keyCode int) {
	if n := len(s.layers); n > 0 {
		if fn := s.layers[n-1].OnKey; fn != nil {
			fn(keyCode, s.udata)
		}
	}
}

// DispatchMouseMotion routes a relative-motion event to the topmost
// layer's OnMouseMove, if bound, passing the stack's bound user data.
func (s *Stack) DispatchMouseMotion(xrel, yrel float64) {
	if n := len(s.layers); n > 0 {
		if fn := s.layers[n-1].OnMouseMove; fn != nil {
			fn(xrel, yrel, s.udata)
		}
	}
}
