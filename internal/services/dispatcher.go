package services

import (
	"log"
	"sync"
	"time"
)

// Dispatcher deduplicates inbound platform events by message id and routes
// them to the conversation engine. It never surfaces an error to the webhook
// boundary; the platform retries aggressively on anything but success, so
// duplicate protection lives here and in the layers below, not in refusing
// acknowledgment.
type Dispatcher struct {
	conversation *ConversationService
	notifier     Notifier

	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	maxSeen int

	stop chan struct{}
	once sync.Once
}

// NewDispatcher creates a dispatcher and starts its seen-set cleanup routine
func NewDispatcher(conversation *ConversationService, notifier Notifier) *Dispatcher {
	d := &Dispatcher{
		conversation: conversation,
		notifier:     notifier,
		seen:         make(map[string]time.Time),
		ttl:          time.Hour, // outlives the platform's retry window
		maxSeen:      10000,
		stop:         make(chan struct{}),
	}
	go d.cleanupSeen()
	return d
}

// Stop terminates the cleanup routine.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
}

// Dispatch handles one classified event.
func (d *Dispatcher) Dispatch(event Event) {
	switch event.Kind {
	case EventStatus:
		log.Printf("📊 message %s status: %s", event.MessageID, event.Detail)
		return
	case EventError:
		log.Printf("❌ platform error: %s", event.Detail)
		return
	case EventUnknown:
		log.Printf("🤔 unknown webhook shape, acknowledged")
		return
	}

	if event.MessageID != "" && d.alreadySeen(event.MessageID) {
		log.Printf("🔁 duplicate message %s ignored", event.MessageID)
		return
	}

	if event.Kind == EventUnsupported {
		log.Printf("⚠️  unsupported message type %q from %s", event.Detail, event.ExternalID)
		d.deliver(SendText{To: event.ExternalID, Body: unsupportedText})
		return
	}

	instructions, err := d.conversation.HandleEvent(event)
	if err != nil {
		log.Printf("❌ handle event %s from %s: %v", event.MessageID, event.ExternalID, err)
	}
	for _, instruction := range instructions {
		d.deliver(instruction)
	}
}

func (d *Dispatcher) deliver(instruction Instruction) {
	if err := d.notifier.Deliver(instruction); err != nil {
		log.Printf("⚠️  deliver instruction: %v", err)
	}
}

// alreadySeen records the message id and reports whether it was present.
func (d *Dispatcher) alreadySeen(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.seen[messageID]; dup {
		return true
	}
	if len(d.seen) >= d.maxSeen {
		d.purgeLocked()
	}
	d.seen[messageID] = time.Now()
	return false
}

// purgeLocked drops expired entries; if everything is fresh it evicts
// arbitrary entries until the set fits the size bound again.
func (d *Dispatcher) purgeLocked() {
	cutoff := time.Now().Add(-d.ttl)
	for id, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, id)
		}
	}
	for id := range d.seen {
		if len(d.seen) < d.maxSeen {
			break
		}
		delete(d.seen, id)
	}
}

// cleanupSeen runs periodically to keep the seen-set bounded
func (d *Dispatcher) cleanupSeen() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.purgeLocked()
			d.mu.Unlock()
		case <-d.stop:
			return
		}
	}
}
