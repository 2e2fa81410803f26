package view

import (
	"sync"
	"time"
)

// Colors used for notification text.
const (
	ColorError   = "red"
	ColorSuccess = "#00c46a"
)

// DefaultNotifyTTL is how long a message stays visible.
const DefaultNotifyTTL = 2 * time.Second

// Message is a transient user-facing notice.
type Message struct {
	Text    string    `json:"text"`
	Color   string    `json:"color"`
	Alert   bool      `json:"alert,omitempty"`
	ShownAt time.Time `json:"shown_at"`
}

// Notifier shows at most one message at a time. A new message cancels the
// pending clear of the previous one and replaces it. Alerts stay until the
// next message.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Message
	timer   *time.Timer
	seq     uint64
	now     func() time.Time
}

// NewNotifier returns a Notifier clearing messages after ttl.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotifyTTL
	}
	return &Notifier{ttl: ttl, now: time.Now}
}

// Show displays text in color and schedules it to clear.
func (n *Notifier) Show(text, color string) {
	n.show(Message{Text: text, Color: color}, true)
}

// Alert displays a message that is not auto-cleared.
func (n *Notifier) Alert(text string) {
	n.show(Message{Text: text, Color: ColorError, Alert: true}, false)
}

func (n *Notifier) show(m Message, expire bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	m.ShownAt = n.now()
	n.current = &m

	if !expire {
		return
	}
	seq := n.seq
	n.timer = time.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		// A newer message may have replaced this one while the timer fired.
		if n.seq == seq {
			n.current = nil
			n.timer = nil
		}
	})
}

// Current returns the visible message, if any.
func (n *Notifier) Current() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Message{}, false
	}
	return *n.current, true
}

// Clear removes the visible message immediately.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	n.current = nil
}
