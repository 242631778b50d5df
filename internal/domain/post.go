package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/fitsync/internal/common"
)

// MaxPostLength bounds post content, in runes.
const MaxPostLength = 2000

// Post is an entry of the community feed.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	Content      string    `json:"content"`
	MediaKey     string    `json:"mediaKey,omitempty"`
	LikedBy      []string  `json:"likedBy"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (p Post) LikeCount() int { return len(p.LikedBy) }

func (p Post) IsLikedBy(email string) bool {
	return slices.Contains(p.LikedBy, email)
}

// ToggleLike returns the like set after email likes or unlikes the post.
func (p Post) ToggleLike(email string) []string {
	if p.IsLikedBy(email) {
		return slices.DeleteFunc(slices.Clone(p.LikedBy), func(s string) bool { return s == email })
	}
	return append(slices.Clone(p.LikedBy), email)
}

type postWire struct {
	ID           *string    `json:"id"`
	AuthorID     *string    `json:"authorId"`
	Content      *string    `json:"content"`
	MediaKey     *string    `json:"mediaKey"`
	LikedBy      []string   `json:"likedBy"`
	CommentCount *int       `json:"commentCount"`
	CreatedAt    *time.Time `json:"createdAt"`
}

// ParsePost parses a posts payload.
func ParsePost(raw []byte) (Post, error) {
	const c = common.CollectionPosts

	var w postWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Post{}, invalid(c, "", err.Error())
	}

	if w.ID == nil || *w.ID == "" {
		return Post{}, invalid(c, "id", "required")
	}
	if w.AuthorID == nil || *w.AuthorID == "" {
		return Post{}, invalid(c, "authorId", "required")
	}
	if w.CreatedAt == nil || w.CreatedAt.IsZero() {
		return Post{}, invalid(c, "createdAt", "required")
	}

	p := Post{
		ID:        *w.ID,
		AuthorID:  strings.ToLower(*w.AuthorID),
		CreatedAt: w.CreatedAt.UTC(),
		LikedBy:   []string{},
	}
	if w.Content != nil {
		p.Content = strings.TrimSpace(*w.Content)
	}
	if w.MediaKey != nil {
		p.MediaKey = *w.MediaKey
	}
	if p.Content == "" && p.MediaKey == "" {
		return Post{}, invalid(c, "content", "post needs content or media")
	}
	if utf8.RuneCountInString(p.Content) > MaxPostLength {
		return Post{}, invalid(c, "content", "too long")
	}
	for _, e := range w.LikedBy {
		if e != "" && !slices.Contains(p.LikedBy, e) {
			p.LikedBy = append(p.LikedBy, e)
		}
	}
	if w.CommentCount != nil {
		if *w.CommentCount < 0 {
			return Post{}, invalid(c, "commentCount", "must not be negative")
		}
		p.CommentCount = *w.CommentCount
	}

	return p, nil
}
