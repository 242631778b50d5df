package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/reconciler"
	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/netx"
	"github.com/google/uuid"
)

var (
	ErrMediaOffline = errors.New("media needs a connection")
	ErrNoMedia      = errors.New("post has no media")
	ErrPostNotFound = errors.New("post not found")
)

// Media is an attachment for a new post.
type Media struct {
	ContentType string
	Data        []byte
}

// MediaStore issues presigned URLs for post media.
type MediaStore interface {
	PresignMediaUpload(ctx context.Context, contentType string) (key, url string, err error)
	PresignMediaDownload(ctx context.Context, key string) (string, error)
}

// FeedItem is a post with its author's display name resolved.
type FeedItem struct {
	Post       domain.Post
	AuthorName string
	SyncedAt   time.Time
}

// FeedPage is one rendered batch of the community feed.
type FeedPage struct {
	Items      []FeedItem
	Removed    []string
	NextCursor string
	Stale      bool
	Live       bool
	Err        error
}

type FeedService interface {
	Load(ctx context.Context) (*FeedPage, error)
	LoadMore(ctx context.Context, cursor string) (*FeedPage, error)
	// Follow calls fn for every batch of the newest page, live changes
	// included, until ctx is done.
	Follow(ctx context.Context, fn func(*FeedPage)) error
	CreatePost(ctx context.Context, content string, media *Media) (*domain.Post, reconciler.WriteResult, error)
	ToggleLike(ctx context.Context, postID string) (bool, reconciler.WriteResult, error)
	Delete(ctx context.Context, postID string) (reconciler.WriteResult, error)
	DownloadMedia(ctx context.Context, postID string, w io.Writer) (int64, error)
}

type feedService struct {
	store   Store
	session Session
	media   MediaStore
	oracle  connectivity.Oracle
	log     logging.Logger
	now     func() time.Time
	newID   func() string
}

func NewFeedService(store Store, session Session, media MediaStore, oracle connectivity.Oracle, l logging.Logger) FeedService {
	return &feedService{
		store:   store,
		session: session,
		media:   media,
		oracle:  oracle,
		log:     l.With("module", "feed"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *feedService) Load(ctx context.Context) (*FeedPage, error) {
	return s.LoadMore(ctx, "")
}

func (s *feedService) LoadMore(ctx context.Context, cursor string) (*FeedPage, error) {
	b, err := firstBatch(ctx, s.store, common.CollectionPosts, cursor)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, b), nil
}

func (s *feedService) Follow(ctx context.Context, fn func(*FeedPage)) error {
	f, err := s.store.LoadCollection(ctx, common.CollectionPosts, "")
	if err != nil {
		return err
	}
	defer f.Close()

	for b := range f.Batches() {
		fn(s.render(ctx, b))
	}
	return nil
}

func (s *feedService) render(ctx context.Context, b reconciler.Batch) *FeedPage {
	page := &FeedPage{
		Removed:    b.Removed,
		NextCursor: b.NextCursor,
		Stale:      b.Stale,
		Live:       b.Live,
		Err:        b.Err,
	}

	posts, err := models.DecodeAll(b.Records, domain.ParsePost)
	if err != nil {
		s.log.Warn(ctx, "skipped unreadable posts", "error", err)
	}

	names := make(map[string]string)
	for _, p := range posts {
		page.Items = append(page.Items, FeedItem{
			Post:       p.Payload,
			AuthorName: s.authorName(ctx, names, p.Payload.AuthorID),
			SyncedAt:   p.LastSyncedAt,
		})
	}
	return page
}

// authorName resolves an author's display name, falling back to the author
// id when the profile is unavailable.
func (s *feedService) authorName(ctx context.Context, cache map[string]string, authorID string) string {
	if name, ok := cache[authorID]; ok {
		return name
	}
	name := authorID
	rec, _, err := s.store.GetEntity(ctx, common.CollectionUsers, authorID)
	switch {
	case err != nil:
		s.log.Debug(ctx, "author lookup failed", "author", authorID, "error", err)
	case rec != nil:
		if u, err := domain.ParseUser(rec.Payload); err == nil {
			name = u.Name()
		}
	}
	cache[authorID] = name
	return name
}

func (s *feedService) CreatePost(ctx context.Context, content string, media *Media) (*domain.Post, reconciler.WriteResult, error) {
	author := s.session.CurrentUser()
	if author == "" {
		return nil, reconciler.WriteResult{}, ErrNotSignedIn
	}
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > domain.MaxPostLength {
		return nil, reconciler.WriteResult{}, &domain.ValidationError{Collection: common.CollectionPosts, Field: "content", Reason: "too long"}
	}

	post := domain.Post{
		ID:        s.newID(),
		AuthorID:  author,
		Content:   content,
		LikedBy:   []string{},
		CreatedAt: s.now().UTC(),
	}

	if media != nil && len(media.Data) > 0 {
		key, err := s.upload(ctx, media)
		if err != nil {
			return nil, reconciler.WriteResult{}, err
		}
		post.MediaKey = key
	}

	payload, err := marshalPayload(post)
	if err != nil {
		return nil, reconciler.WriteResult{}, err
	}
	res, err := s.store.WriteEntity(ctx, common.CollectionPosts, post.ID, payload)
	if err != nil {
		return nil, res, err
	}
	return &post, res, nil
}

func (s *feedService) upload(ctx context.Context, m *Media) (string, error) {
	if !s.oracle.IsConnected(ctx) {
		return "", ErrMediaOffline
	}
	key, url, err := s.media.PresignMediaUpload(ctx, m.ContentType)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	if err := netx.UploadToPresignedURL(ctx, url, m.ContentType, m.Data); err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return key, nil
}

func (s *feedService) post(ctx context.Context, postID string) (domain.Post, error) {
	rec, _, err := s.store.GetEntity(ctx, common.CollectionPosts, postID)
	if err != nil {
		return domain.Post{}, err
	}
	if rec == nil {
		return domain.Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	return domain.ParsePost(rec.Payload)
}

// ToggleLike likes or unlikes a post for the current user and reports
// whether it is liked afterwards.
func (s *feedService) ToggleLike(ctx context.Context, postID string) (bool, reconciler.WriteResult, error) {
	me := s.session.CurrentUser()
	if me == "" {
		return false, reconciler.WriteResult{}, ErrNotSignedIn
	}
	post, err := s.post(ctx, postID)
	if err != nil {
		return false, reconciler.WriteResult{}, err
	}

	post.LikedBy = post.ToggleLike(me)
	payload, err := marshalPayload(post)
	if err != nil {
		return false, reconciler.WriteResult{}, err
	}
	res, err := s.store.WriteEntity(ctx, common.CollectionPosts, post.ID, payload)
	return post.IsLikedBy(me), res, err
}

func (s *feedService) Delete(ctx context.Context, postID string) (reconciler.WriteResult, error) {
	me := s.session.CurrentUser()
	if me == "" {
		return reconciler.WriteResult{}, ErrNotSignedIn
	}
	post, err := s.post(ctx, postID)
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	if post.AuthorID != me {
		return reconciler.WriteResult{}, fmt.Errorf("%w: only the author can delete a post", client.ErrPermissionDenied)
	}
	return s.store.DeleteEntity(ctx, common.CollectionPosts, postID)
}

func (s *feedService) DownloadMedia(ctx context.Context, postID string, w io.Writer) (int64, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return 0, err
	}
	if post.MediaKey == "" {
		return 0, ErrNoMedia
	}
	if !s.oracle.IsConnected(ctx) {
		return 0, ErrMediaOffline
	}
	url, err := s.media.PresignMediaDownload(ctx, post.MediaKey)
	if err != nil {
		return 0, fmt.Errorf("presign download: %w", err)
	}
	return netx.DownloadFromPresignedURL(ctx, url, w)
}
