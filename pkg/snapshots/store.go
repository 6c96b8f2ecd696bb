// Package snapshots persists the last fetched feed document of every source.
//
// Each source owns the prefix "<key>/". Documents are never overwritten: every
// save creates a new object and reads return the most recently updated one.
package snapshots

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Latest when a source has no stored document yet.
var ErrNotFound = errors.New("no stored snapshot")

// Store reads and writes raw feed documents per source key.
type Store interface {
	Latest(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, doc []byte) error
	Close() error
}

const objectTimeLayout = "20060102150405"

// objectName returns "<key>/<UTC timestamp>.xml".
func objectName(key string, at time.Time) string {
	return key + "/" + at.UTC().Format(objectTimeLayout) + ".xml"
}

// prefix returns the listing prefix for key.
func prefix(key string) string {
	return key + "/"
}
