// Package events provides a channel-based pub/sub broker for sweep-run
// notifications, the way the teacher broadcast transaction events to
// connected SSE clients.
package events

import (
	"sync"

	"creditmeter/internal/domain/models"
)

// Broker manages client subscriptions and broadcasts sweep-run events.
type Broker struct {
	clients       map[chan models.SweepRunEvent]bool
	newClients    chan chan models.SweepRunEvent
	closedClients chan chan models.SweepRunEvent
	events        chan models.SweepRunEvent
}

var (
	BrokerInstance *Broker
	brokerOnce     sync.Once
)

// GetBroker returns the singleton event broker instance.
func GetBroker() *Broker {
	brokerOnce.Do(func() {
		BrokerInstance = NewBroker()
	})
	return BrokerInstance
}

// NewBroker creates and starts a new Broker. Public for testing; production
// code should use GetBroker().
func NewBroker() *Broker {
	b := &Broker{
		clients:       make(map[chan models.SweepRunEvent]bool),
		newClients:    make(chan chan models.SweepRunEvent),
		closedClients: make(chan chan models.SweepRunEvent),
		events:        make(chan models.SweepRunEvent),
	}
	go b.start()
	return b
}

func (b *Broker) start() {
	for {
		select {
		case client := <-b.newClients:
			b.clients[client] = true
		case client := <-b.closedClients:
			delete(b.clients, client)
			close(client)
		case event := <-b.events:
			for client := range b.clients {
				client <- event
			}
		}
	}
}

func (b *Broker) Subscribe() chan models.SweepRunEvent {
	ch := make(chan models.SweepRunEvent)
	b.newClients <- ch
	return ch
}

func (b *Broker) Unsubscribe(ch chan models.SweepRunEvent) {
	b.closedClients <- ch
}

func (b *Broker) Publish(event models.SweepRunEvent) {
	b.events <- event
}
