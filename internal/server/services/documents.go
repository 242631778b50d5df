package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/server/broker"
	"github.com/dmitrijs2005/fitsync/internal/server/config"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
	"github.com/dmitrijs2005/fitsync/internal/server/repositories/documents"
	"github.com/dmitrijs2005/fitsync/internal/server/repositories/repomanager"
)

// Publisher receives every committed change.
type Publisher interface {
	Publish(ctx context.Context, collection string, c broker.Change)
}

// DocumentService reads and writes collection documents on behalf of an
// authenticated account.
//
// Ownership rules:
//   - users/<email> may only be written by that email
//   - posts are written and deleted by their author; any account may add or
//     remove its own entry in likedBy
//   - nutrition is read-only
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   Publisher
	maxPageSize int
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, p Publisher, cfg *config.Config) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		publisher:   p,
		maxPageSize: cfg.MaxPageSize,
		now:         time.Now,
	}
}

// Page is one slice of an ordered collection. Next is empty on the last page.
type Page struct {
	Documents []*models.Document
	Next      string
}

func (s *DocumentService) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	return s.repomanager.Documents(s.db).Get(ctx, collection, id)
}

// Write stores payload under collection/id. With merge set, payload is a
// patch applied on top of the stored document.
func (s *DocumentService) Write(ctx context.Context, caller, collection, id string, payload []byte, merge bool) (*models.Document, error) {
	if err := s.checkWritable(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", common.ErrorInvalidArgument)
	}

	var saved *models.Document
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		current, err := repo.GetForUpdate(ctx, collection, id)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		body := payload
		if merge {
			base := domain.MergeBase(collection, id)
			if current != nil {
				base = current.Payload
			}
			if body, err = domain.MergeObjects(base, payload); err != nil {
				return err
			}
		}

		owner, body, err := s.authorize(caller, collection, id, current, body)
		if err != nil {
			return err
		}

		saved, err = repo.Upsert(ctx, &models.Document{
			Collection: collection,
			ID:         id,
			Owner:      owner,
			Payload:    body,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, collection, broker.Change{Document: saved})
	return saved, nil
}

// Delete removes collection/id. Deleting a missing document succeeds.
func (s *DocumentService) Delete(ctx context.Context, caller, collection, id string) error {
	if err := s.checkWritable(collection); err != nil {
		return err
	}

	var removed *models.Document
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		current, err := repo.GetForUpdate(ctx, collection, id)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Owner != caller {
			return fmt.Errorf("%w: only the owner may delete %s/%s", common.ErrorPermissionDenied, collection, id)
		}

		ok, err := repo.Delete(ctx, collection, id)
		if err != nil {
			return err
		}
		if ok {
			removed = current
		}
		return nil
	})
	if err != nil {
		return err
	}

	if removed != nil {
		tomb := *removed
		tomb.Payload = nil
		tomb.UpdatedAt = s.now().UTC()
		s.publisher.Publish(ctx, collection, broker.Change{Document: &tomb, Deleted: true})
	}
	return nil
}

// Query returns one page of collection ordered by sortField. A pageSize of
// zero or above the configured maximum is clamped to the maximum.
func (s *DocumentService) Query(ctx context.Context, collection, sortField string, descending bool, pageSize int, cursor string) (*Page, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	q := documents.Query{
		Collection: collection,
		SortField:  sortField,
		Descending: descending,
		Limit:      pageSize + 1,
	}
	if cursor != "" {
		after, err := documents.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		q.After = after
	}

	docs, err := s.repomanager.Documents(s.db).QueryOrdered(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &Page{Documents: docs}
	if len(docs) > pageSize {
		page.Documents = docs[:pageSize]
		page.Next = documents.CursorAfter(docs[pageSize-1], sortField).Encode()
	}
	return page, nil
}

func (s *DocumentService) checkWritable(collection string) error {
	if err := domain.CheckCollection(collection); err != nil {
		return err
	}
	if collection == common.CollectionNutrition {
		return fmt.Errorf("%w: %s is read-only", common.ErrorPermissionDenied, collection)
	}
	return nil
}

// authorize validates body and returns the owner to store and the payload to
// persist.
func (s *DocumentService) authorize(caller, collection, id string, current *models.Document, body []byte) (string, []byte, error) {
	if _, err := domain.ParseDocument(collection, body); err != nil {
		return "", nil, err
	}

	switch collection {
	case common.CollectionUsers:
		u, _ := domain.ParseUser(body)
		if id != caller || u.Email != caller {
			return "", nil, fmt.Errorf("%w: profile %s belongs to another account", common.ErrorPermissionDenied, id)
		}
		return caller, body, nil

	case common.CollectionPosts:
		return s.authorizePost(caller, id, current, body)
	}
	return "", nil, fmt.Errorf("%w: %s is read-only", common.ErrorPermissionDenied, collection)
}

func (s *DocumentService) authorizePost(caller, id string, current *models.Document, body []byte) (string, []byte, error) {
	next, _ := domain.ParsePost(body)
	if next.ID != id {
		return "", nil, fmt.Errorf("%w: post id %q does not match %q", common.ErrorInvalidArgument, next.ID, id)
	}

	var likes []string
	if current == nil {
		if next.AuthorID != caller {
			return "", nil, fmt.Errorf("%w: posts can only be created by their author", common.ErrorPermissionDenied)
		}
		likes = ownLike(nil, next, caller)
	} else {
		prev, err := domain.ParsePost(current.Payload)
		if err != nil {
			return "", nil, fmt.Errorf("stored post %s: %w", id, err)
		}
		if caller == prev.AuthorID {
			if next.AuthorID != prev.AuthorID {
				return "", nil, fmt.Errorf("%w: author cannot be changed", common.ErrorPermissionDenied)
			}
		} else if !sameExceptLikes(prev, next) {
			return "", nil, fmt.Errorf("%w: only the author may edit post %s", common.ErrorPermissionDenied, id)
		}
		likes = ownLike(prev.LikedBy, next, caller)
	}

	patch, err := json.Marshal(map[string][]string{"likedBy": likes})
	if err != nil {
		return "", nil, err
	}
	body, err = domain.MergeObjects(body, patch)
	if err != nil {
		return "", nil, err
	}
	return next.AuthorID, body, nil
}

// ownLike applies the caller's entry of next.LikedBy to stored. Entries of
// other accounts always come from stored.
func ownLike(stored []string, next domain.Post, caller string) []string {
	out := slices.DeleteFunc(slices.Clone(stored), func(e string) bool { return e == caller })
	if next.IsLikedBy(caller) {
		out = append(out, caller)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func sameExceptLikes(a, b domain.Post) bool {
	return a.ID == b.ID &&
		a.AuthorID == b.AuthorID &&
		a.Content == b.Content &&
		a.MediaKey == b.MediaKey &&
		a.CommentCount == b.CommentCount &&
		a.CreatedAt.Equal(b.CreatedAt)
}
