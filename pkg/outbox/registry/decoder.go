package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// ErrDecoderNotRegistered means no decoder knows the event type at that version.
var ErrDecoderNotRegistered = errors.New("decoder not registered")

// Decoder turns a raw event payload into its typed form.
type Decoder func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]Decoder
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]Decoder)}
}

// NewOrderEventDecoders registers the payloads published on the orders topic
// at the version the outbox currently stamps.
func NewOrderEventDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderCommitted, outbox.PayloadVersion, JSONDecoder[payloads.OrderCommittedEvent]())
	reg.Register(enums.EventOrderFulfillmentUpdated, outbox.PayloadVersion, JSONDecoder[payloads.OrderFulfillmentUpdatedEvent]())
	reg.Register(enums.EventReconciliationFlagged, outbox.PayloadVersion, JSONDecoder[payloads.ReconciliationFlaggedEvent]())
	return reg
}

// JSONDecoder unmarshals a non-empty payload into a fresh *T.
func JSONDecoder[T any]() Decoder {
	return func(payload json.RawMessage) (any, error) {
		if len(payload) == 0 {
			return nil, errors.New("empty payload")
		}
		out := new(T)
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Knows reports whether any version of the event type has a decoder.
func (r *DecoderRegistry) Knows(eventType enums.OutboxEventType) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	for key := range r.registry {
		if key.eventType == eventType {
			return true
		}
	}
	return false
}

// Decode runs the decoder registered for the event type and version. Events
// written before versions were stamped carry zero and decode as version 1.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	if version <= 0 {
		version = outbox.PayloadVersion
	}
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrDecoderNotRegistered, eventType, version)
	}
	return decoder(payload)
}
