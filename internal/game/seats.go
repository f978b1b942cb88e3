package game

import "github.com/idsulik/go-collections/v3/queue"

// SeatManager owns the seat list and the FIFO of players waiting for one.
type SeatManager struct {
	limit   int
	seats   []*Player
	waiting *queue.Queue[*Player]
}

func NewSeatManager(limit int) *SeatManager {
	return &SeatManager{limit: limit, waiting: queue.New[*Player](limit)}
}

func (m *SeatManager) Limit() int { return m.limit }

func (m *SeatManager) Len() int { return len(m.seats) }

func (m *SeatManager) At(idx int) *Player { return m.seats[idx] }

// Seats returns the live seat slice; callers must not retain it across
// mutations.
func (m *SeatManager) Seats() []*Player { return m.seats }

func (m *SeatManager) Index(id string) int {
	for i, p := range m.seats {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *SeatManager) Waiting() []*Player {
	out := make([]*Player, 0, m.waiting.Len())
	m.waiting.ForEach(func(p *Player) {
		out = append(out, p)
	})
	return out
}

func (m *SeatManager) IsWaiting(id string) bool {
	found := false
	m.waiting.ForEach(func(p *Player) {
		if p.ID == id {
			found = true
		}
	})
	return found
}

// Join seats p when a seat is free and queues it otherwise.
func (m *SeatManager) Join(p *Player) (bool, error) {
	if m.Index(p.ID) >= 0 || m.IsWaiting(p.ID) {
		return false, ErrAlreadyJoined
	}
	if len(m.seats) < m.limit {
		m.seats = append(m.seats, p)
		return true, nil
	}
	m.waiting.Enqueue(p)
	return false, nil
}

func (m *SeatManager) RemoveSeat(idx int) *Player {
	p := m.seats[idx]
	m.seats = append(m.seats[:idx], m.seats[idx+1:]...)
	return p
}

func (m *SeatManager) RemoveWaiting(id string) bool {
	if !m.IsWaiting(id) {
		return false
	}
	next := queue.New[*Player](m.limit)
	m.waiting.ForEach(func(p *Player) {
		if p.ID != id {
			next.Enqueue(p)
		}
	})
	m.waiting = next
	return true
}

// Promote fills free seats from the front of the queue.
func (m *SeatManager) Promote() []*Player {
	var promoted []*Player
	for len(m.seats) < m.limit && m.waiting.Len() > 0 {
		p, ok := m.waiting.Dequeue()
		if !ok {
			break
		}
		m.seats = append(m.seats, p)
		promoted = append(promoted, p)
	}
	return promoted
}
