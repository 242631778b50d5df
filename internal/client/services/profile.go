package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/reconciler"
	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/domain"
)

// ErrNoProfile means the signed-in user has not completed onboarding.
var ErrNoProfile = errors.New("profile not found")

// Profile is the current user's profile as last known.
type Profile struct {
	User     domain.User
	Stale    bool
	SyncedAt time.Time
}

type ProfileService interface {
	Get(ctx context.Context) (*Profile, error)
	CompleteOnboarding(ctx context.Context, displayName string, goals domain.Goals) (reconciler.WriteResult, error)
	UpdateGoals(ctx context.Context, goals domain.Goals) (reconciler.WriteResult, error)
	ActivatePremium(ctx context.Context) (reconciler.WriteResult, error)
}

type profileService struct {
	store   Store
	session Session
	now     func() time.Time
}

func NewProfileService(store Store, session Session) ProfileService {
	return &profileService{store: store, session: session, now: time.Now}
}

func (s *profileService) user() (string, error) {
	email := s.session.CurrentUser()
	if email == "" {
		return "", ErrNotSignedIn
	}
	return email, nil
}

func (s *profileService) Get(ctx context.Context) (*Profile, error) {
	email, err := s.user()
	if err != nil {
		return nil, err
	}
	rec, stale, err := s.store.GetEntity(ctx, common.CollectionUsers, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoProfile
	}
	e, err := models.Decode(rec, domain.ParseUser)
	if err != nil {
		return nil, err
	}
	return &Profile{User: e.Payload, Stale: stale, SyncedAt: e.LastSyncedAt}, nil
}

// CompleteOnboarding writes the whole profile, so it works before anything
// about the user is cached.
func (s *profileService) CompleteOnboarding(ctx context.Context, displayName string, goals domain.Goals) (reconciler.WriteResult, error) {
	email, err := s.user()
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	payload, err := marshalPayload(map[string]any{
		"email":              email,
		"displayName":        displayName,
		"goals":              goals,
		"onboardingComplete": true,
	})
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	return s.store.WriteEntity(ctx, common.CollectionUsers, email, payload)
}

func (s *profileService) UpdateGoals(ctx context.Context, goals domain.Goals) (reconciler.WriteResult, error) {
	email, err := s.user()
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	if goals.Calories < 0 || goals.WaterMl < 0 || goals.Steps < 0 {
		return reconciler.WriteResult{}, &domain.ValidationError{Collection: common.CollectionUsers, Field: "goals", Reason: "must not be negative"}
	}
	payload, err := marshalPayload(map[string]any{"goals": goals})
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	return s.store.WriteEntity(ctx, common.CollectionUsers, email, payload)
}

func (s *profileService) ActivatePremium(ctx context.Context) (reconciler.WriteResult, error) {
	email, err := s.user()
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	payload, err := marshalPayload(map[string]any{
		"premium":      true,
		"premiumSince": s.now().UTC(),
	})
	if err != nil {
		return reconciler.WriteResult{}, err
	}
	return s.store.WriteEntity(ctx, common.CollectionUsers, email, payload)
}
