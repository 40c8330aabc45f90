package input

// State tracks held keys plus the keys that went down or up since the last
// EndTick. It is owned by the simulation goroutine.
type State struct {
	held         map[Key]struct{}
	justPressed  map[Key]struct{}
	justReleased map[Key]struct{}
}

func NewState() *State {
	return &State{
		held:         make(map[Key]struct{}),
		justPressed:  make(map[Key]struct{}),
		justReleased: make(map[Key]struct{}),
	}
}

// Press marks k held. Auto-repeat of an already held key is not a new press.
func (s *State) Press(k Key) {
	if _, ok := s.held[k]; !ok {
		s.justPressed[k] = struct{}{}
	}
	s.held[k] = struct{}{}
}

// Release clears k. Releasing a key that was not held records nothing.
func (s *State) Release(k Key) {
	if _, ok := s.held[k]; ok {
		s.justReleased[k] = struct{}{}
	}
	delete(s.held, k)
}

// Apply feeds one key event into the state.
func (s *State) Apply(ev Event) {
	if ev.Down {
		s.Press(ev.Key)
	} else {
		s.Release(ev.Key)
	}
}

func (s *State) IsPressed(k Key) bool {
	_, ok := s.held[k]
	return ok
}

func (s *State) IsJustPressed(k Key) bool {
	_, ok := s.justPressed[k]
	return ok
}

func (s *State) IsJustReleased(k Key) bool {
	_, ok := s.justReleased[k]
	return ok
}

// Axis returns +1, -1 or 0 from a pair of opposing keys. Holding both
// cancels out.
func (s *State) Axis(positive, negative Key) float32 {
	var v float32
	if s.IsPressed(positive) {
		v++
	}
	if s.IsPressed(negative) {
		v--
	}
	return v
}

// EndTick clears the per-tick press and release sets.
func (s *State) EndTick() {
	clear(s.justPressed)
	clear(s.justReleased)
}
