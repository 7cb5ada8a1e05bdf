package sse

import (
	"encoding/json"
	"fmt"

	"github.com/starford/tortoise/internal/forecast"
	"github.com/starford/tortoise/internal/models"
)

// Event types.
const (
	TypeAccountChanged    = "account.changed"
	TypeAccountSaved      = "account.saved"
	TypeAccountSaveFailed = "account.save_failed"
	TypeCatalogCreated    = "catalog.created"
	TypeCatalogUpdated    = "catalog.updated"
	TypeCatalogDeleted    = "catalog.deleted"
	TypeCatalogChanged    = "catalog.changed"
	TypeSelectionChanged  = "selection.changed"
	TypeForecastStarted   = "forecast.started"
	TypeForecastFinished  = "forecast.finished"
)

// frame renders ev in the text/event-stream wire format.
func frame(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload)), nil
}

// CatalogChange is the payload of the catalog.created, catalog.updated and
// catalog.deleted events.
type CatalogChange struct {
	Name string `json:"name"`
}

var catalogTypes = map[string]string{
	"created": TypeCatalogCreated,
	"updated": TypeCatalogUpdated,
	"deleted": TypeCatalogDeleted,
}

// PublishCatalogEvent announces a stored account file that was created,
// updated or deleted, followed by a throttled catalog.changed that tells list
// views to reload. Other kinds are dropped. It matches catalog.EventCallback.
func (b *Broker) PublishCatalogEvent(kind, name string) {
	typ, ok := catalogTypes[kind]
	if !ok {
		return
	}
	b.publishSummarized(
		Event{Type: typ, Data: CatalogChange{Name: name}},
		Event{Type: TypeCatalogChanged, Data: struct{}{}},
	)
}

// AccountChange is the payload of account.changed. The account itself is not
// sent, so non-finite numbers never reach the encoder.
type AccountChange struct {
	Name      string         `json:"name"`
	CashFlows int            `json:"cash_flows"`
	Issues    []models.Issue `json:"issues"`
}

// PublishAccountChanged announces a new edit snapshot.
func (b *Broker) PublishAccountChanged(a models.Account) {
	b.Publish(Event{Type: TypeAccountChanged, Data: AccountChange{
		Name:      a.Name,
		CashFlows: len(a.CashFlows),
		Issues:    models.Issues(a),
	}})
}

// PublishSaved announces the outcome of an autosave attempt. Its signature
// matches the autosave OnSaved hook.
func (b *Broker) PublishSaved(a models.Account, err error) {
	if err != nil {
		b.Publish(Event{Type: TypeAccountSaveFailed, Data: map[string]string{
			"name":  a.Name,
			"error": err.Error(),
		}})
		return
	}
	b.Publish(Event{Type: TypeAccountSaved, Data: map[string]string{"name": a.Name}})
}

// PublishSelection announces the selected scenario accounts.
func (b *Broker) PublishSelection(names []string) {
	if names == nil {
		names = []string{}
	}
	b.Publish(Event{Type: TypeSelectionChanged, Data: map[string][]string{"accounts": names}})
}

// PublishForecast relays a forecast run event.
func (b *Broker) PublishForecast(ev forecast.Event) {
	typ := TypeForecastStarted
	if ev.Phase == forecast.PhaseFinished {
		typ = TypeForecastFinished
	}
	b.Publish(Event{Type: typ, Data: ev})
}
