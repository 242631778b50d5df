package rpc

import (
	"encoding/json"
	"time"
)

// Document is a stored JSON object with server-assigned timestamps.
// Deleted marks a tombstone delivered on a live Watch stream.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Deleted    bool            `json:"deleted,omitempty"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct{}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type GetDocumentRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type GetDocumentResponse struct {
	Document *Document `json:"document"`
}

type WriteDocumentRequest struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	Merge      bool            `json:"merge"`
}

type WriteDocumentResponse struct {
	Document *Document `json:"document"`
}

type DeleteDocumentRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type DeleteDocumentResponse struct{}

// Sort fields accepted by Watch.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
)

// WatchRequest asks for one ordered page. A request without a cursor keeps
// the stream open and receives live changes after the page.
type WatchRequest struct {
	Collection string `json:"collection"`
	SortField  string `json:"sortField"`
	Descending bool   `json:"descending"`
	PageSize   int32  `json:"pageSize"`
	Cursor     string `json:"cursor,omitempty"`
}

// WatchBatch is one message of a Watch stream. The first batch is the page;
// Live batches carry subsequent changes.
type WatchBatch struct {
	Documents  []*Document `json:"documents"`
	NextCursor string      `json:"nextCursor,omitempty"`
	Live       bool        `json:"live,omitempty"`
}

type PresignMediaUploadRequest struct {
	ContentType string `json:"contentType"`
}

type PresignMediaUploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PresignMediaDownloadRequest struct {
	Key string `json:"key"`
}

type PresignMediaDownloadResponse struct {
	URL string `json:"url"`
}
