package reconciler

import (
	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/rpc"
)

// Policy is how one collection is cached and written.
type Policy struct {
	Collection string
	// SortField is the document timestamp the collection is ordered and
	// watermarked by.
	SortField  string
	Descending bool
	// Window is how many records stay cached once a fresher batch arrives.
	// Zero keeps everything.
	Window int
	// Merge sends writes as patches merged into the stored document.
	Merge bool
	// ReadOnly collections reject writes and deletes.
	ReadOnly bool
}

// DefaultPolicies are the house rules for the known collections.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		common.CollectionUsers: {
			Collection: common.CollectionUsers,
			SortField:  rpc.SortByUpdatedAt,
			Descending: true,
			Merge:      true,
		},
		common.CollectionPosts: {
			Collection: common.CollectionPosts,
			SortField:  rpc.SortByCreatedAt,
			Descending: true,
			Window:     5,
		},
		common.CollectionNutrition: {
			Collection: common.CollectionNutrition,
			SortField:  rpc.SortByUpdatedAt,
			ReadOnly:   true,
		},
	}
}
