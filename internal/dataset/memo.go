package dataset

import (
	"sync"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Memo resolves a Loader at most once per process and hands out the same read-only
// Dataset (or the same error) on every call. There is no invalidation: the source is
// treated as static for the process lifetime.
type Memo struct {
	loader Loader
	once   sync.Once
	ds     *models.Dataset
	err    error
}

// NewMemo wraps loader.
func NewMemo(loader Loader) *Memo {
	return &Memo{loader: loader}
}

// Get returns the memoized Dataset, loading it on first use.
func (m *Memo) Get() (*models.Dataset, error) {
	m.once.Do(func() {
		m.ds, m.err = m.loader.Load()
	})
	return m.ds, m.err
}
