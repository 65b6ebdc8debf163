// Package events contains the product change events published to JetStream.
package events

import (
	"encoding/json"
	"time"
)

// Product change kinds, used as the last subject token.
const (
	ProductCreated = "created"
	ProductUpdated = "updated"
	ProductRemoved = "removed"
)

// ProductChangedEvent is emitted after a successful write to a product.
type ProductChangedEvent struct {
	subject    string
	Kind       string    `json:"kind"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Available  bool      `json:"available"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProductChangedEvent builds an event published on <subjectPrefix>.<kind>.
func NewProductChangedEvent(subjectPrefix, kind string, id int64, name string, price float64, available bool, at time.Time) ProductChangedEvent {
	return ProductChangedEvent{
		subject:    subjectPrefix + "." + kind,
		Kind:       kind,
		ProductID:  id,
		Name:       name,
		Price:      price,
		Available:  available,
		OccurredAt: at.UTC(),
	}
}

func (e ProductChangedEvent) Subject() string {
	return e.subject
}

func (e ProductChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
