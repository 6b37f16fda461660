package mqtt

import log "github.com/sirupsen/logrus"

// outbound is a serialized message waiting for the broker.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps the most recent messages published while the broker is
// unreachable. When full, the oldest message is dropped.
// Not safe for concurrent use; caller must synchronize.
type backlog struct {
	slots   []outbound
	next    int // slot the next push writes
	size    int
	dropped int // messages lost since the last flush
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{slots: make([]outbound, capacity)}
}

func (b *backlog) push(msg outbound) {
	b.slots[b.next] = msg
	b.next = (b.next + 1) % len(b.slots)
	if b.size < len(b.slots) {
		b.size++
		return
	}
	if b.dropped == 0 {
		log.Printf("mqtt: backlog full (%d messages), dropping oldest", len(b.slots))
	}
	b.dropped++
}

// flush returns the buffered messages oldest first and empties the backlog.
func (b *backlog) flush() []outbound {
	if b.size == 0 {
		return nil
	}
	out := make([]outbound, 0, b.size)
	first := b.next - b.size
	if first < 0 {
		first += len(b.slots)
	}
	for i := 0; i < b.size; i++ {
		out = append(out, b.slots[(first+i)%len(b.slots)])
	}
	if b.dropped > 0 {
		log.Printf("mqtt: replaying %d buffered messages, %d dropped", b.size, b.dropped)
	}
	b.next, b.size, b.dropped = 0, 0, 0
	return out
}

func (b *backlog) len() int {
	return b.size
}
