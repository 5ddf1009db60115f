package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/shelfmarkapp/shelfmark-server/internal/config"
	"github.com/shelfmarkapp/shelfmark-server/internal/dto"
	"github.com/shelfmarkapp/shelfmark-server/internal/logger"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
)

// ProvideCoverStorage provides the cover image storage.
func ProvideCoverStorage(i do.Injector) (*covers.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := covers.NewStorage(cfg.Data.BasePath)
	if err != nil {
		return nil, fmt.Errorf("cover storage: %w", err)
	}

	log.Info("Cover storage initialized")

	return storage, nil
}

// ProvideEnricher provides the response enricher that denormalizes
// category names, reviewer names, and rating aggregates.
func ProvideEnricher(i do.Injector) (*dto.Enricher, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return dto.NewEnricher(storeHandle.Store), nil
}
