package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"weatherlog/internal/cache"
	"weatherlog/internal/model"
	"weatherlog/internal/repository"
)

const (
	profileCacheTTL    = 5 * time.Minute
	profileCachePrefix = "user:profile:"
)

// UserService serves the authenticated caller's profile.
// Profiles are cached in Redis; a disabled or unreachable cache only costs a DB read.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func profileKey(id uuid.UUID) string {
	return profileCachePrefix + id.String()
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if user, ok := s.cachedProfile(ctx, id); ok {
		return user, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.storeProfile(ctx, user)
	return user, nil
}

// Invalidate drops the cached profile, e.g. on logout.
func (s *userService) Invalidate(ctx context.Context, id uuid.UUID) {
	_ = s.cache.Delete(ctx, profileKey(id))
}

func (s *userService) cachedProfile(ctx context.Context, id uuid.UUID) (*model.User, bool) {
	data, err := s.cache.Get(ctx, profileKey(id))
	if err != nil || data == nil {
		return nil, false
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID != id {
		return nil, false
	}
	return &user, true
}

func (s *userService) storeProfile(ctx context.Context, user *model.User) {
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, profileKey(user.ID), payload, profileCacheTTL)
}
