package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-collab-api/internal/models"
	"github.com/noah-isme/campus-collab-api/pkg/config"
)

type mockMentorDirectory struct {
	listings   []models.MentorListing
	lastFilter models.MentorFilter
}

func (m *mockMentorDirectory) ListMentors(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error) {
	m.lastFilter = filter
	return m.listings, nil
}

type mockMetricsRecorder struct {
	hits   int
	misses int
	writes int
}

func (m *mockMetricsRecorder) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *mockMetricsRecorder) ObserveCacheWrite(duration time.Duration) {
	m.writes++
}

func acceptedConnection(store *mockRequestStore, id, a, b string) {
	store.requests[id] = &models.CollaborationRequest{
		ID: id, Kind: models.KindConnection, RequesterID: a, TargetID: b,
		CollegeID: "college-1", Status: models.StatusAccepted,
	}
}

func newSuggestionFixture() (*SuggestionService, *mockRequestStore, *mockUserReader, *mockPeerCache, *mockMetricsRecorder) {
	store := newMockRequestStore()
	users := &mockUserReader{users: map[string]*models.User{
		"me":    studentUser("me", "college-1", "Actor"),
		"alice": studentUser("alice", "college-1", "Alice"),
		"bob":   studentUser("bob", "college-1", "Bob"),
		"zoe":   studentUser("zoe", "college-1", "Zoe"),
		"p1":    studentUser("p1", "college-1", "Peer One"),
		"p2":    studentUser("p2", "college-1", "Peer Two"),
		"p3":    studentUser("p3", "college-1", "Peer Three"),
	}}
	visibility := NewVisibilityService(users, nil)
	cache := newMockPeerCache()
	metrics := &mockMetricsRecorder{}
	svc := NewSuggestionService(visibility, store, &mockMentorDirectory{}, cache, metrics, config.SuggestionsConfig{Limit: 10, PeerCacheTTL: time.Minute}, nil)
	return svc, store, users, cache, metrics
}

func TestSuggestRanksByMutualThenName(t *testing.T) {
	svc, store, users, _, _ := newSuggestionFixture()

	// Actor shares three peers with both alice and bob, one with zoe.
	acceptedConnection(store, "c1", "me", "p1")
	acceptedConnection(store, "c2", "me", "p2")
	acceptedConnection(store, "c3", "p3", "me")
	acceptedConnection(store, "c4", "alice", "p1")
	acceptedConnection(store, "c5", "alice", "p2")
	acceptedConnection(store, "c6", "alice", "p3")
	acceptedConnection(store, "c7", "bob", "p1")
	acceptedConnection(store, "c8", "bob", "p2")
	acceptedConnection(store, "c9", "p3", "bob")
	acceptedConnection(store, "c10", "zoe", "p1")

	suggestions, err := svc.Suggest(context.Background(), actorFor(users.users["me"]))
	require.NoError(t, err)
	require.Len(t, suggestions, 6)

	assert.Equal(t, "alice", suggestions[0].UserID)
	assert.Equal(t, 3, suggestions[0].MutualCount)
	assert.Equal(t, "bob", suggestions[1].UserID)
	assert.Equal(t, 3, suggestions[1].MutualCount)
	assert.Equal(t, "zoe", suggestions[2].UserID)
	assert.Equal(t, 1, suggestions[2].MutualCount)
}

func TestSuggestExcludesPeersAndPending(t *testing.T) {
	svc, store, users, _, _ := newSuggestionFixture()

	acceptedConnection(store, "c1", "me", "alice")
	store.requests["c2"] = &models.CollaborationRequest{
		ID: "c2", Kind: models.KindConnection, RequesterID: "bob", TargetID: "me",
		CollegeID: "college-1", Status: models.StatusPending,
	}

	suggestions, err := svc.Suggest(context.Background(), actorFor(users.users["me"]))
	require.NoError(t, err)
	for _, suggestion := range suggestions {
		assert.NotEqual(t, "alice", suggestion.UserID)
		assert.NotEqual(t, "bob", suggestion.UserID)
		assert.NotEqual(t, "me", suggestion.UserID)
	}
}

func TestSuggestHonorsLimit(t *testing.T) {
	svc, _, users, _, _ := newSuggestionFixture()
	svc.cfg.Limit = 2

	suggestions, err := svc.Suggest(context.Background(), actorFor(users.users["me"]))
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestPeerSetCachesAndRecordsMetrics(t *testing.T) {
	svc, store, users, cache, metrics := newSuggestionFixture()
	acceptedConnection(store, "c1", "me", "alice")

	_, err := svc.Suggest(context.Background(), actorFor(users.users["me"]))
	require.NoError(t, err)
	assert.Contains(t, cache.sets, "peers:me")
	assert.Equal(t, []string{"alice"}, cache.sets["peers:me"])
	firstMisses := metrics.misses
	assert.Positive(t, firstMisses)
	assert.Positive(t, metrics.writes)

	_, err = svc.Suggest(context.Background(), actorFor(users.users["me"]))
	require.NoError(t, err)
	assert.Positive(t, metrics.hits)
	assert.Equal(t, firstMisses, metrics.misses)
}

func TestListMentorsForcesCollegeForNonAdmins(t *testing.T) {
	svc, _, users, _, _ := newSuggestionFixture()
	directory := &mockMentorDirectory{listings: []models.MentorListing{{ID: "m1", FullName: "Mia"}}}
	svc.mentors = directory

	listings, err := svc.ListMentors(context.Background(), actorFor(users.users["me"]), models.MentorFilter{CollegeID: "college-9", Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, "college-1", directory.lastFilter.CollegeID)
	assert.Equal(t, 1, directory.lastFilter.Page)
	assert.Equal(t, 20, directory.lastFilter.PageSize)
}

func TestListMentorsAdminKeepsFilter(t *testing.T) {
	svc, _, _, _, _ := newSuggestionFixture()
	directory := &mockMentorDirectory{}
	svc.mentors = directory
	admin := models.Actor{ID: "a1", Role: models.RoleAdmin, CollegeID: "college-1"}

	_, err := svc.ListMentors(context.Background(), admin, models.MentorFilter{CollegeID: "college-2"})
	require.NoError(t, err)
	assert.Equal(t, "college-2", directory.lastFilter.CollegeID)
}
