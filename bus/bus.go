// bus.go
package bus

import (
	"slices"
	"strings"
	"sync"
)

// Topic is a path of tokens such as {"telemetry", "frame"}. Subscription
// patterns may use "+" for exactly one token and a final "#" for any
// remaining tokens, including none.
type Topic []string

const (
	anyOne  = "+"
	anyRest = "#"
)

// T builds a Topic from its tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

func (t Topic) String() string { return strings.Join(t, "/") }

func isWild(tok string) bool { return tok == anyOne || tok == anyRest }

// Message is what travels over the bus. Retained messages are kept per topic
// and replayed to later subscribers.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// NewMessage builds a Message.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Subscription is a bounded queue of messages matching one pattern.
type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// offer enqueues msg without blocking, evicting the oldest entry if full.
func (s *Subscription) offer(msg *Message) {
	for try := 0; try < 2; try++ {
		select {
		case s.ch <- msg:
			return
		default:
		}
		if try == 0 {
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// level is one token of the topic trie. Pattern tokens ("+", "#") are stored
// as ordinary children so subscriptions live where their pattern ends.
type level struct {
	next  map[string]*level
	subs  []*Subscription
	value *Message
}

func (l *level) get(tok string) *level {
	if l == nil {
		return nil
	}
	return l.next[tok]
}

func (l *level) ensure(tok string) *level {
	if l.next == nil {
		l.next = map[string]*level{}
	}
	c := l.next[tok]
	if c == nil {
		c = &level{}
		l.next[tok] = c
	}
	return c
}

func (l *level) empty() bool {
	return len(l.subs) == 0 && len(l.next) == 0 && l.value == nil
}

// Bus routes messages between connections.
type Bus struct {
	mu    sync.Mutex
	trie  *level
	depth int
}

// NewBus returns a bus whose subscriptions queue up to depth messages.
// A non-positive depth selects 8.
func NewBus(depth int) *Bus {
	if depth <= 0 {
		depth = 8
	}
	return &Bus{trie: &level{}, depth: depth}
}

// Publish fans msg out to every matching subscription. A retained message
// replaces the stored value for its topic; a nil retained payload clears it.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fanout(b.trie, msg.Topic, msg)
	if !msg.Retained {
		return
	}
	l := b.trie
	for _, tok := range msg.Topic {
		l = l.ensure(tok)
	}
	if msg.Payload == nil {
		l.value = nil
	} else {
		l.value = msg
	}
}

func fanout(l *level, rest Topic, msg *Message) {
	if l == nil {
		return
	}
	if tail := l.get(anyRest); tail != nil {
		for _, s := range tail.subs {
			s.offer(msg)
		}
	}
	if len(rest) == 0 {
		for _, s := range l.subs {
			s.offer(msg)
		}
		return
	}
	fanout(l.get(rest[0]), rest[1:], msg)
	fanout(l.get(anyOne), rest[1:], msg)
}

// retained sends every stored value under l that pattern matches to sub.
func retained(l *level, pattern Topic, sub *Subscription) {
	if len(pattern) == 0 {
		if l.value != nil {
			sub.offer(l.value)
		}
		return
	}
	switch pattern[0] {
	case anyRest:
		if l.value != nil {
			sub.offer(l.value)
		}
		for tok, c := range l.next {
			if !isWild(tok) {
				retained(c, pattern, sub)
			}
		}
	case anyOne:
		for tok, c := range l.next {
			if !isWild(tok) {
				retained(c, pattern[1:], sub)
			}
		}
	default:
		if c := l.get(pattern[0]); c != nil {
			retained(c, pattern[1:], sub)
		}
	}
}

func (b *Bus) attach(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.trie
	for _, tok := range sub.topic {
		l = l.ensure(tok)
	}
	l.subs = append(l.subs, sub)
	retained(b.trie, sub.topic, sub)
}

// detach removes sub and prunes any levels left empty.
func (b *Bus) detach(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := make([]*level, 0, len(sub.topic)+1)
	l := b.trie
	path = append(path, l)
	for _, tok := range sub.topic {
		if l = l.get(tok); l == nil {
			return
		}
		path = append(path, l)
	}
	if i := slices.Index(l.subs, sub); i >= 0 {
		l.subs = slices.Delete(l.subs, i, i+1)
	}
	for i := len(sub.topic); i > 0 && path[i].empty(); i-- {
		delete(path[i-1].next, sub.topic[i-1])
	}
}

// Connection groups the subscriptions of one service so they can be torn
// down together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection returns a connection named id.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a pattern. Matching retained values are queued
// before Subscribe returns.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, c.bus.depth), conn: c}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.attach(sub)
	return sub
}

// Unsubscribe detaches sub and closes its channel. Repeated calls are no-ops.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	i := slices.Index(c.subs, sub)
	if i >= 0 {
		c.subs = slices.Delete(c.subs, i, i+1)
	}
	c.mu.Unlock()
	if i < 0 {
		return
	}
	c.bus.detach(sub)
	close(sub.ch)
}

// Disconnect closes every subscription held by c.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.detach(sub)
		close(sub.ch)
	}
}
