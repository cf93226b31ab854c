package history

// DefaultDepth is the default number of undo (and redo) steps kept.
const DefaultDepth = 100

// Executor applies actions to canvas state on behalf of the Manager.
type Executor interface {
	Execute(a Action)
	Revert(a Action)
}

// stack is a LIFO bounded at cap entries; pushing past the bound drops the
// oldest entry.
type stack struct {
	items []Action
	cap   int
}

func (s *stack) push(a Action) {
	if s.cap <= 0 {
		return
	}
	if len(s.items) == s.cap {
		copy(s.items, s.items[1:])
		s.items[len(s.items)-1] = nil
		s.items = s.items[:len(s.items)-1]
	}
	s.items = append(s.items, a)
}

func (s *stack) pop() (Action, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	a := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return a, true
}

func (s *stack) clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// Manager holds the undo and redo stacks and the open batch session.
//
// Both stacks are bounded by the configured depth. Once more than depth
// actions have been recorded the oldest ones can no longer be undone; that
// trade keeps memory bounded on long sessions and is intentional.
//
// A Manager is not safe for concurrent use; the canvas model guards it with
// the same lock as the item store.
type Manager struct {
	undo  stack
	redo  stack
	batch []Action
	open  int // nesting level of StartBatch calls
}

// NewManager creates a Manager keeping at most depth steps per stack.
// A non-positive depth selects DefaultDepth.
func NewManager(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{undo: stack{cap: depth}, redo: stack{cap: depth}}
}

// Depth returns the stack bound.
func (m *Manager) Depth() int { return m.undo.cap }

// Record pushes a freshly applied action. Inside a batch session it is
// buffered instead. A push invalidates the redo stack.
func (m *Manager) Record(a Action) {
	if m.open > 0 {
		m.batch = append(m.batch, a)
		return
	}
	m.push(a)
}

func (m *Manager) push(a Action) {
	m.undo.push(a)
	m.redo.clear()
}

// StartBatch opens a batch session. Sessions nest; only the outermost
// EndBatch commits.
func (m *Manager) StartBatch() {
	m.open++
}

// EndBatch closes the current session. When the outermost session closes,
// the buffered actions are pushed as one step and that step is returned.
// An empty session pushes nothing.
func (m *Manager) EndBatch() (Action, bool) {
	if m.open == 0 {
		return nil, false
	}
	m.open--
	if m.open > 0 {
		return nil, false
	}
	buffered := m.batch
	m.batch = nil
	a, ok := Flatten(buffered)
	if !ok {
		return nil, false
	}
	m.push(a)
	return a, true
}

// InBatch reports whether a batch session is open.
func (m *Manager) InBatch() bool { return m.open > 0 }

// closeBatch force-commits any open session.
func (m *Manager) closeBatch() {
	if m.open == 0 {
		return
	}
	m.open = 1
	m.EndBatch()
}

// Undo reverts the most recent step through exec and moves it to the redo
// stack. An open batch session is committed first so it undoes as a unit.
func (m *Manager) Undo(exec Executor) (Action, bool) {
	m.closeBatch()
	a, ok := m.undo.pop()
	if !ok {
		return nil, false
	}
	exec.Revert(a)
	m.redo.push(a)
	return a, true
}

// Redo re-applies the most recently undone step through exec.
func (m *Manager) Redo(exec Executor) (Action, bool) {
	m.closeBatch()
	a, ok := m.redo.pop()
	if !ok {
		return nil, false
	}
	exec.Execute(a)
	m.undo.push(a)
	return a, true
}

func (m *Manager) CanUndo() bool { return len(m.undo.items) > 0 || len(m.batch) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo.items) > 0 }
func (m *Manager) UndoLen() int  { return len(m.undo.items) }
func (m *Manager) RedoLen() int  { return len(m.redo.items) }

// Clear drops both stacks and any open session.
func (m *Manager) Clear() {
	m.undo.clear()
	m.redo.clear()
	m.batch = nil
	m.open = 0
}
