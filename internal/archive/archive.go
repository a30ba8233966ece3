package archive

import (
	"context"
	"io"
)

// Archiver stores raw marketplace payloads keyed by connection and external
// product ID. Archiving is best-effort: the sync pipeline logs failures and
// carries on.
type Archiver interface {
	// Store writes the raw payload for one product snapshot.
	Store(ctx context.Context, connectionID, externalID string, payload []byte) error

	// Fetch reads back an archived payload.
	Fetch(ctx context.Context, connectionID, externalID string) (io.ReadCloser, error)

	// Delete removes all trace of one product snapshot.
	Delete(ctx context.Context, connectionID, externalID string) error
}

// Disabled is the no-op Archiver used when archiving is turned off.
type Disabled struct{}

func (Disabled) Store(ctx context.Context, connectionID, externalID string, payload []byte) error {
	return nil
}

func (Disabled) Fetch(ctx context.Context, connectionID, externalID string) (io.ReadCloser, error) {
	return nil, ErrArchiveDisabled
}

func (Disabled) Delete(ctx context.Context, connectionID, externalID string) error {
	return nil
}
