package common

import "encoding/json"

// Envelope is the unit of transport. Data stays raw until the consumer
// resolves Meta.Type against the taxonomy registry.
type Envelope struct {
	Meta Meta            `json:"meta"`
	Data json.RawMessage `json:"data,omitempty"`
}

type GenericEnvelope[T any] struct {
	Meta Meta `json:"meta"`
	Data T    `json:"data"`
}

// Raw converts a typed envelope back into the transport form.
func (e GenericEnvelope[T]) Raw() (Envelope, error) {
	body, err := json.Marshal(e.Data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Meta: e.Meta, Data: body}, nil
}
