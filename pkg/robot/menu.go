package robot

import (
	"sync"

	"github.com/robotalks/polylink/pkg/launcher"
)

// Competition states.
const (
	StateMenu    = "menu"
	StateRunning = "running"
	StatePaused  = "paused"
)

// Menu is the launcher menu running one competition program at a time.
// It implements launcher.Competition.
type Menu struct {
	Logger *launcher.LinkLogger

	state   string
	program string
	lock    sync.Mutex
}

// State returns the current state and program.
func (m *Menu) State() (state, program string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.state == "" {
		return StateMenu, ""
	}
	return m.state, m.program
}

// Start starts a program from the menu.
func (m *Menu) Start(program string) {
	m.set(StateRunning, program)
}

// Pause implements launcher.Competition.
func (m *Menu) Pause() {
	m.transit(StateRunning, StatePaused)
}

// Resume implements launcher.Competition.
func (m *Menu) Resume() {
	m.transit(StatePaused, StateRunning)
}

// AbortToMenu implements launcher.Competition.
func (m *Menu) AbortToMenu() {
	m.set(StateMenu, "")
}

func (m *Menu) transit(from, to string) {
	m.lock.Lock()
	ok := m.state == from
	program := m.program
	if ok {
		m.state = to
	}
	m.lock.Unlock()
	if ok {
		m.Logger.Debugf("%s %s", program, to)
	} else {
		m.Logger.Warningf("can't switch to %s when not %s", to, from)
	}
}

func (m *Menu) set(state, program string) {
	m.lock.Lock()
	m.state, m.program = state, program
	m.lock.Unlock()
	if program == "" {
		m.Logger.Debugf("back to menu")
	} else {
		m.Logger.Debugf("%s %s", program, state)
	}
}
