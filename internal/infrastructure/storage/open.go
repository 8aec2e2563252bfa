package storage

import (
	"fmt"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/config"
)

// Backend kinds accepted by Open
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindEtcd   = "etcd"
	KindConsul = "consul"
)

// Open creates the backend selected by cfg.Kind. A positive CacheSize wraps
// it in a read cache.
func Open(cfg config.StoreConfig) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Kind {
	case KindMemory, "":
		backend = NewMemory()
	case KindSQLite:
		backend, err = NewSQLite(cfg.DSN)
	case KindEtcd:
		backend, err = DialEtcd(cfg.Endpoints, cfg.DialTimeout, cfg.Prefix)
	case KindConsul:
		if len(cfg.Endpoints) == 0 {
			return nil, fmt.Errorf("consul store needs an endpoint")
		}
		backend, err = DialConsul(cfg.Endpoints[0], cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize <= 0 {
		return backend, nil
	}
	cached, err := NewCached(backend, cfg.CacheSize)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return cached, nil
}
