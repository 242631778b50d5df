package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
)

// maxCatalogPages bounds one catalog refresh.
const maxCatalogPages = 50

type NutritionItem = models.CachedEntity[domain.NutritionItem]

// NutritionService browses the read-only nutrition catalog. The catalog
// only grows locally: items seen once stay available offline.
type NutritionService interface {
	// List refreshes the catalog when online and returns everything known
	// locally. stale is set when the refresh did not complete.
	List(ctx context.Context) (items []NutritionItem, stale bool, err error)
	Search(ctx context.Context, query string) ([]NutritionItem, bool, error)
}

type nutritionService struct {
	store  Store
	oracle connectivity.Oracle
	log    logging.Logger
}

func NewNutritionService(store Store, oracle connectivity.Oracle, l logging.Logger) NutritionService {
	return &nutritionService{store: store, oracle: oracle, log: l.With("module", "nutrition")}
}

func (s *nutritionService) List(ctx context.Context) ([]NutritionItem, bool, error) {
	stale := !s.oracle.IsConnected(ctx)
	if !stale {
		stale = !s.refresh(ctx)
	}

	recs, err := s.store.Snapshot(ctx, common.CollectionNutrition)
	if err != nil {
		return nil, stale, err
	}
	items, err := models.DecodeAll(recs, domain.ParseNutritionItem)
	if err != nil {
		s.log.Warn(ctx, "skipped unreadable catalog items", "error", err)
	}
	return items, stale, nil
}

// refresh pulls catalog pages until the last one and reports whether it got
// there.
func (s *nutritionService) refresh(ctx context.Context) bool {
	cursor := ""
	for range maxCatalogPages {
		b, err := firstBatch(ctx, s.store, common.CollectionNutrition, cursor)
		if err == nil {
			err = b.Err
		}
		if err != nil {
			s.log.Warn(ctx, "catalog refresh stopped", "error", err)
			return false
		}
		if b.Stale {
			return false
		}
		if b.NextCursor == "" {
			return true
		}
		cursor = b.NextCursor
	}
	return true
}

func (s *nutritionService) Search(ctx context.Context, query string) ([]NutritionItem, bool, error) {
	items, stale, err := s.List(ctx)
	if err != nil {
		return nil, stale, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items, stale, nil
	}
	out := make([]NutritionItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Payload.Name), q) {
			out = append(out, it)
		}
	}
	return out, stale, nil
}
