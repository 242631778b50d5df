package domain

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fitsync/internal/common"
)

// ErrUnknownCollection is returned for collection names outside the closed set.
var ErrUnknownCollection = errors.New("unknown collection")

// Collections lists every known collection in a stable order.
var Collections = []string{common.CollectionUsers, common.CollectionPosts, common.CollectionNutrition}

// CheckCollection returns ErrUnknownCollection (wrapped) for unknown names.
func CheckCollection(name string) error {
	switch name {
	case common.CollectionUsers, common.CollectionPosts, common.CollectionNutrition:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
}

// ParseDocument parses raw as a record of the given collection.
func ParseDocument(collection string, raw []byte) (any, error) {
	switch collection {
	case common.CollectionUsers:
		return ParseUser(raw)
	case common.CollectionPosts:
		return ParsePost(raw)
	case common.CollectionNutrition:
		return ParseNutritionItem(raw)
	default:
		return nil, CheckCollection(collection)
	}
}
