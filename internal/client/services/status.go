package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/syncqueue"
	"github.com/dmitrijs2005/fitsync/internal/domain"
)

// Syncer is the reconciler surface behind the sync commands.
type Syncer interface {
	Drain(ctx context.Context) (syncqueue.DrainReport, error)
	PendingCount(ctx context.Context) (int, error)
	Watermark(ctx context.Context, collection string) (time.Time, bool, error)
	Queue() *syncqueue.Queue
}

// Switch is an oracle that can be forced offline by hand.
type Switch interface {
	connectivity.Oracle
	ForceOffline(ctx context.Context, forced bool)
	Forced() bool
}

type Status struct {
	User    string
	Online  bool
	Forced  bool
	Pending int
	// Watermarks holds the newest confirmed timestamp per collection; a
	// collection never loaded online is absent.
	Watermarks map[string]time.Time
}

type SyncService interface {
	Status(ctx context.Context) (*Status, error)
	Sync(ctx context.Context) (syncqueue.DrainReport, error)
	Pending(ctx context.Context) ([]*models.PendingOperation, error)
	SetOffline(ctx context.Context, offline bool)
}

type syncService struct {
	syncer  Syncer
	oracle  Switch
	session Session
}

func NewSyncService(syncer Syncer, oracle Switch, session Session) SyncService {
	return &syncService{syncer: syncer, oracle: oracle, session: session}
}

func (s *syncService) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		User:       s.session.CurrentUser(),
		Online:     s.oracle.IsConnected(ctx),
		Forced:     s.oracle.Forced(),
		Watermarks: make(map[string]time.Time),
	}

	n, err := s.syncer.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	st.Pending = n

	for _, c := range domain.Collections {
		wm, ok, err := s.syncer.Watermark(ctx, c)
		if err != nil {
			return nil, err
		}
		if ok {
			st.Watermarks[c] = wm
		}
	}
	return st, nil
}

func (s *syncService) Sync(ctx context.Context) (syncqueue.DrainReport, error) {
	return s.syncer.Drain(ctx)
}

func (s *syncService) Pending(ctx context.Context) ([]*models.PendingOperation, error) {
	return s.syncer.Queue().Pending(ctx)
}

func (s *syncService) SetOffline(ctx context.Context, offline bool) {
	s.oracle.ForceOffline(ctx, offline)
}
