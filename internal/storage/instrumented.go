// internal/storage/instrumented.go
package storage

import (
	"context"

	"github.com/valpere/recipevault/pkg/types"
)

// OpObserver receives the outcome of every store operation.
type OpObserver interface {
	ObserveStoreOp(op string, err error)
}

type instrumentedStore struct {
	Store
	observer OpObserver
}

// Instrument reports each operation of s to o.
func Instrument(s Store, o OpObserver) Store {
	if o == nil {
		return s
	}
	return &instrumentedStore{Store: s, observer: o}
}

func (s *instrumentedStore) Upsert(ctx context.Context, r types.Recipe) (*types.Recipe, error) {
	out, err := s.Store.Upsert(ctx, r)
	s.observer.ObserveStoreOp("upsert", err)
	return out, err
}

func (s *instrumentedStore) ListAll(ctx context.Context) ([]types.Recipe, error) {
	out, err := s.Store.ListAll(ctx)
	s.observer.ObserveStoreOp("list", err)
	return out, err
}

func (s *instrumentedStore) DeleteByURL(ctx context.Context, url string) (*types.Recipe, error) {
	out, err := s.Store.DeleteByURL(ctx, url)
	s.observer.ObserveStoreOp("delete", err)
	return out, err
}
