package tui

import (
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"spicecomment/internal/protocol"
)

// ErrSurfaceClosed is returned by Send after the program exits.
var ErrSurfaceClosed = errors.New("terminal surface closed")

// Surface queues outbound session messages for the program. Send never
// blocks, so the session can report while Update is running.
type Surface struct {
	mu     sync.Mutex
	queue  []protocol.Outbound
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewSurface() *Surface {
	return &Surface{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (s *Surface) Send(m protocol.Outbound) error {
	select {
	case <-s.done:
		return ErrSurfaceClosed
	default:
	}
	s.mu.Lock()
	s.queue = append(s.queue, m)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *Surface) Close() { s.once.Do(func() { close(s.done) }) }

type outboundMsg struct{ m protocol.Outbound }

// next waits for the next queued message.
func (s *Surface) next() tea.Cmd {
	return func() tea.Msg {
		for {
			s.mu.Lock()
			if len(s.queue) > 0 {
				m := s.queue[0]
				s.queue = s.queue[1:]
				s.mu.Unlock()
				return outboundMsg{m}
			}
			s.mu.Unlock()
			select {
			case <-s.notify:
			case <-s.done:
				return nil
			}
		}
	}
}
