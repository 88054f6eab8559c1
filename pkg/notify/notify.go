// Package notify publishes inspection reports to downstream consumers.
package notify

import "sync"

// ContentTypeJSON is the content type of published reports
const ContentTypeJSON = "application/json"

// Publisher delivers a message body to a queue
type Publisher interface {
	Publish(body []byte, contentType string) error
	Close() error
}

// Factory opens publishers for a broker address and queue
type Factory interface {
	NewPublisher(url, queue string) (Publisher, error)
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish([]byte, string) error { return nil }
func (Nop) Close() error                 { return nil }

// Message is a body captured by Recorder
type Message struct {
	Body        []byte
	ContentType string
}

// Recorder keeps published messages in memory
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
}

func (r *Recorder) Publish(body []byte, contentType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{
		Body:        append([]byte(nil), body...),
		ContentType: contentType,
	})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Messages returns a copy of everything published so far
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Closed reports whether Close was called
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
