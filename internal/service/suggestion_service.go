package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	"github.com/noah-isme/campus-collab-api/pkg/config"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type suggestionRequestReader interface {
	AcceptedPeerIDs(ctx context.Context, userID string) ([]string, error)
	PendingPeerIDs(ctx context.Context, userID string) ([]string, error)
}

type suggestionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type mentorDirectory interface {
	ListMentors(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error)
}

type cacheMetricsRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// SuggestionService ranks connection candidates by mutual accepted
// connections. Accepted-peer sets are cached per user; rankings themselves
// are always computed fresh so a just-accepted connection shows up on the
// next read.
type SuggestionService struct {
	visibility *VisibilityService
	requests   suggestionRequestReader
	mentors    mentorDirectory
	cache      suggestionCache
	metrics    cacheMetricsRecorder
	cfg        config.SuggestionsConfig
	logger     *zap.Logger
}

// NewSuggestionService creates the suggestion ranker.
func NewSuggestionService(visibility *VisibilityService, requests suggestionRequestReader, mentors mentorDirectory, cache suggestionCache, metrics cacheMetricsRecorder, cfg config.SuggestionsConfig, logger *zap.Logger) *SuggestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	return &SuggestionService{
		visibility: visibility,
		requests:   requests,
		mentors:    mentors,
		cache:      cache,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

// Suggest returns ranked connection candidates for the actor: visible users
// with no accepted connection and no pending request in either direction,
// ordered by mutual connection count descending, then full name ascending.
func (s *SuggestionService) Suggest(ctx context.Context, actor models.Actor) ([]models.ConnectionSuggestion, error) {
	candidates, err := s.visibility.VisibleCandidates(ctx, actor)
	if err != nil {
		return nil, err
	}

	actorPeers, err := s.peerSet(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	pending, err := s.requests.PendingPeerIDs(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending requests")
	}

	excluded := make(map[string]struct{}, len(actorPeers)+len(pending))
	for id := range actorPeers {
		excluded[id] = struct{}{}
	}
	for _, id := range pending {
		excluded[id] = struct{}{}
	}

	suggestions := make([]models.ConnectionSuggestion, 0, len(candidates))
	for _, candidate := range candidates {
		if _, skip := excluded[candidate.ID]; skip {
			continue
		}
		candidatePeers, err := s.peerSet(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		mutual := 0
		for id := range candidatePeers {
			if _, ok := actorPeers[id]; ok {
				mutual++
			}
		}
		suggestions = append(suggestions, models.ConnectionSuggestion{
			UserID:      candidate.ID,
			FullName:    candidate.FullName,
			Headline:    candidate.Headline,
			Role:        candidate.Role,
			MutualCount: mutual,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].MutualCount != suggestions[j].MutualCount {
			return suggestions[i].MutualCount > suggestions[j].MutualCount
		}
		return suggestions[i].FullName < suggestions[j].FullName
	})

	if len(suggestions) > s.cfg.Limit {
		suggestions = suggestions[:s.cfg.Limit]
	}
	return suggestions, nil
}

// ListMentors returns the mentor directory scoped to the actor's college,
// with aggregate session ratings.
func (s *SuggestionService) ListMentors(ctx context.Context, actor models.Actor, filter models.MentorFilter) ([]models.MentorListing, error) {
	if !actor.IsAdmin() {
		filter.CollegeID = actor.CollegeID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	mentors, err := s.mentors.ListMentors(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	return mentors, nil
}

// peerSet loads a user's accepted-peer ids, through the cache when one is
// configured. A cache failure falls back to the store.
func (s *SuggestionService) peerSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	key := peerCacheKey(userID)

	if s.cache != nil {
		start := time.Now()
		var cached []string
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return toSet(cached), nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("peer cache read failed", zap.Error(err), zap.String("user_id", userID))
		}
	}

	peers, err := s.requests.AcceptedPeerIDs(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load connections")
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, peers, s.cfg.PeerCacheTTL); err != nil {
			s.logger.Warn("peer cache write failed", zap.Error(err), zap.String("user_id", userID))
		} else if s.metrics != nil {
			s.metrics.ObserveCacheWrite(time.Since(start))
		}
	}
	return toSet(peers), nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
