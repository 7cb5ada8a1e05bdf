// Package sse streams Tortoise change notifications to renderers as
// Server-Sent Events.
package sse

import (
	"net/http"
	"sync/atomic"
	"time"
)

// keepAlive is how often an idle stream gets a comment line, so proxies do
// not drop it.
const keepAlive = 20 * time.Second

// Event is one notification. Data is sent JSON-encoded.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// summarized is an event followed by a summary event that is sent at most once
// per summary interval.
type summarized struct {
	event   Event
	summary Event
}

// Broker fans events out to connected streams.
//
// One goroutine owns the client set and the time of the last summary; every
// public method talks to it over channels.
type Broker struct {
	summaryMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	summarizedCh  chan summarized
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. summaryMin is the minimum interval between two
// summary events such as catalog.changed; a non-positive value means 2s.
func NewBroker(summaryMin time.Duration) *Broker {
	if summaryMin <= 0 {
		summaryMin = 2 * time.Second
	}
	b := &Broker{
		summaryMin:    summaryMin,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		summarizedCh:  make(chan summarized, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastSummary time.Time

	send := func(ev Event) {
		msg, err := frame(ev)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client; it misses this event
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return
		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}
		case ev := <-b.publishCh:
			send(ev)
		case s := <-b.summarizedCh:
			send(s.event)
			if now := time.Now(); now.Sub(lastSummary) >= b.summaryMin {
				lastSummary = now
				send(s.summary)
			}
		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and ends every stream. It is safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends ev to every client. It is a no-op after Close.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// publishSummarized sends ev, then summary unless one went out less than the
// summary interval ago.
func (b *Broker) publishSummarized(ev, summary Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.summarizedCh <- summarized{event: ev, summary: summary}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	tick := time.NewTicker(keepAlive)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
