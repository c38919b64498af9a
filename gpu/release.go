package gpu

import "github.com/sirupsen/logrus"

type release struct {
	name string
	fn   func()
}

// releaseStack runs release actions in reverse order of registration.
type releaseStack struct {
	actions []release
}

func (s *releaseStack) push(name string, fn func()) {
	s.actions = append(s.actions, release{name: name, fn: fn})
}

func (s *releaseStack) len() int {
	return len(s.actions)
}

// unwind pops and runs every action. Each action runs at most once.
func (s *releaseStack) unwind(log logrus.FieldLogger) {
	for len(s.actions) > 0 {
		last := s.actions[len(s.actions)-1]
		s.actions = s.actions[:len(s.actions)-1]

		log.WithField("resource", last.name).Debug("releasing")
		last.fn()
	}
}
