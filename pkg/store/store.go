// Package store is the best-effort local cache behind the clients: session
// id, customer profile, field values. It is read at startup and written on
// change, but the live session protocol always wins once connected.
package store

import "context"

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Well-known cache keys.
const (
	KeySessionID   = "session_id"
	KeyCustomer    = "customer_profile"
	KeyProduct     = "current_product"
	KeyFieldValues = "field_values"
	KeyCurrentPage = "current_page"
)
