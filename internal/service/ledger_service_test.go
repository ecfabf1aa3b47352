package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

// mockRequestStore is an in-memory stand-in for the request repository. It
// mirrors the storage-level guarantees the real one gets from its partial
// unique indexes, so race-shaped tests behave like postgres would.
type mockRequestStore struct {
	requests map[string]*models.CollaborationRequest
	projects map[string]*models.Project
	members  map[string]map[string]bool
	seq      int
}

func newMockRequestStore() *mockRequestStore {
	return &mockRequestStore{
		requests: make(map[string]*models.CollaborationRequest),
		projects: make(map[string]*models.Project),
		members:  make(map[string]map[string]bool),
	}
}

func (m *mockRequestStore) Create(ctx context.Context, request *models.CollaborationRequest) error {
	for _, existing := range m.requests {
		if existing.Status == models.StatusPending &&
			existing.RequesterID == request.RequesterID &&
			existing.TargetID == request.TargetID &&
			existing.Kind == request.Kind {
			return appErrors.Clone(appErrors.ErrConflict, "request already pending")
		}
		if request.Kind == models.KindMentorshipSession && existing.Kind == models.KindMentorshipSession &&
			existing.TargetID == request.TargetID &&
			(existing.Status == models.StatusPending || existing.Status == models.StatusAccepted) &&
			existing.DayOfWeek != nil && request.DayOfWeek != nil &&
			*existing.DayOfWeek == *request.DayOfWeek && existing.TimeLabel == request.TimeLabel {
			return appErrors.Clone(appErrors.ErrConflict, "slot no longer available")
		}
	}
	if request.ID == "" {
		m.seq++
		request.ID = "r" + string(rune('0'+m.seq))
	}
	if request.Status == "" {
		request.Status = models.StatusPending
	}
	request.CreatedAt = time.Now().UTC()
	request.UpdatedAt = request.CreatedAt
	cp := *request
	m.requests[request.ID] = &cp
	return nil
}

func (m *mockRequestStore) FindByID(ctx context.Context, id string) (*models.CollaborationRequest, error) {
	if request, ok := m.requests[id]; ok {
		cp := *request
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestStore) FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	request, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.RequestDetail{CollaborationRequest: *request}, nil
}

func (m *mockRequestStore) ExistsPending(ctx context.Context, requesterID, targetID string, kind models.RequestKind) (bool, error) {
	for _, request := range m.requests {
		if request.Status == models.StatusPending && request.RequesterID == requesterID && request.TargetID == targetID && request.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestStore) UpdateStatusIfPending(ctx context.Context, id string, status models.RequestStatus) (bool, error) {
	request, ok := m.requests[id]
	if !ok || request.Status != models.StatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	request.Status = status
	request.UpdatedAt = now
	request.RespondedAt = &now
	return true, nil
}

func (m *mockRequestStore) ResolveJoinRequest(ctx context.Context, id string, status models.RequestStatus) (bool, error) {
	request, ok := m.requests[id]
	if !ok || request.Status != models.StatusPending || request.Kind != models.KindProjectJoin {
		return false, nil
	}
	now := time.Now().UTC()
	request.Status = status
	request.UpdatedAt = now
	request.RespondedAt = &now
	if status == models.StatusAccepted {
		if m.members[request.TargetID] == nil {
			m.members[request.TargetID] = make(map[string]bool)
		}
		m.members[request.TargetID][request.RequesterID] = true
	}
	return true, nil
}

func (m *mockRequestStore) DeleteIfPending(ctx context.Context, id, requesterID string) (bool, error) {
	request, ok := m.requests[id]
	if !ok || request.Status != models.StatusPending || request.RequesterID != requesterID {
		return false, nil
	}
	delete(m.requests, id)
	return true, nil
}

func (m *mockRequestStore) DeleteAcceptedConnection(ctx context.Context, id string) (bool, error) {
	request, ok := m.requests[id]
	if !ok || request.Kind != models.KindConnection || request.Status != models.StatusAccepted {
		return false, nil
	}
	delete(m.requests, id)
	return true, nil
}

func (m *mockRequestStore) list(match func(*models.CollaborationRequest) bool) []models.RequestDetail {
	var out []models.RequestDetail
	for _, request := range m.requests {
		if match(request) {
			out = append(out, models.RequestDetail{CollaborationRequest: *request})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRequestStore) ListPendingForTarget(ctx context.Context, targetID string, kind models.RequestKind) ([]models.RequestDetail, error) {
	return m.list(func(r *models.CollaborationRequest) bool {
		return r.TargetID == targetID && r.Kind == kind && r.Status == models.StatusPending
	}), nil
}

func (m *mockRequestStore) ListPendingForProjectLead(ctx context.Context, leadID string) ([]models.RequestDetail, error) {
	return m.list(func(r *models.CollaborationRequest) bool {
		if r.Kind != models.KindProjectJoin || r.Status != models.StatusPending {
			return false
		}
		project, ok := m.projects[r.TargetID]
		return ok && project.LeadID == leadID
	}), nil
}

func (m *mockRequestStore) ListPendingByRequester(ctx context.Context, requesterID string, kind models.RequestKind) ([]models.RequestDetail, error) {
	return m.list(func(r *models.CollaborationRequest) bool {
		return r.RequesterID == requesterID && r.Kind == kind && r.Status == models.StatusPending
	}), nil
}

func (m *mockRequestStore) ListAcceptedConnections(ctx context.Context, userID string) ([]models.RequestDetail, error) {
	return m.list(func(r *models.CollaborationRequest) bool {
		return r.Kind == models.KindConnection && r.Status == models.StatusAccepted &&
			(r.RequesterID == userID || r.TargetID == userID)
	}), nil
}

func (m *mockRequestStore) peerIDs(userID string, status models.RequestStatus) []string {
	var peers []string
	for _, r := range m.requests {
		if r.Kind != models.KindConnection || r.Status != status {
			continue
		}
		if r.RequesterID == userID {
			peers = append(peers, r.TargetID)
		} else if r.TargetID == userID {
			peers = append(peers, r.RequesterID)
		}
	}
	return peers
}

func (m *mockRequestStore) AcceptedPeerIDs(ctx context.Context, userID string) ([]string, error) {
	return m.peerIDs(userID, models.StatusAccepted), nil
}

func (m *mockRequestStore) PendingPeerIDs(ctx context.Context, userID string) ([]string, error) {
	return m.peerIDs(userID, models.StatusPending), nil
}

func (m *mockRequestStore) OccupiedSlots(ctx context.Context, mentorID string) ([]models.SlotKey, error) {
	var slots []models.SlotKey
	for _, r := range m.requests {
		if r.Kind == models.KindMentorshipSession && r.TargetID == mentorID &&
			(r.Status == models.StatusPending || r.Status == models.StatusAccepted) && r.DayOfWeek != nil {
			slots = append(slots, models.SlotKey{DayOfWeek: *r.DayOfWeek, TimeLabel: r.TimeLabel})
		}
	}
	return slots, nil
}

// project reader view over the same store

func (m *mockRequestStore) FindProjectByID(ctx context.Context, id string) (*models.Project, error) {
	if project, ok := m.projects[id]; ok {
		cp := *project
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestStore) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	return m.members[projectID][userID], nil
}

func (m *mockRequestStore) ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	var out []models.ProjectMember
	for userID := range m.members[projectID] {
		out = append(out, models.ProjectMember{ProjectID: projectID, UserID: userID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type mockProjectReader struct {
	store *mockRequestStore
}

func (m *mockProjectReader) FindByID(ctx context.Context, id string) (*models.Project, error) {
	return m.store.FindProjectByID(ctx, id)
}

func (m *mockProjectReader) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	return m.store.IsMember(ctx, projectID, userID)
}

func (m *mockProjectReader) ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	return m.store.ListMembers(ctx, projectID)
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserReader) ListVisibleCandidates(ctx context.Context, actor models.Actor) ([]models.User, error) {
	var out []models.User
	for _, user := range m.users {
		if !user.Active || user.ID == actor.ID {
			continue
		}
		if !actor.IsAdmin() && user.CollegeID != actor.CollegeID {
			continue
		}
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type mockPeerCache struct {
	values  map[string][]string
	deleted []string
	sets    map[string][]string
}

func newMockPeerCache() *mockPeerCache {
	return &mockPeerCache{values: make(map[string][]string), sets: make(map[string][]string)}
}

func (m *mockPeerCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	typed, ok := dest.(*[]string)
	if !ok {
		return errors.New("unexpected destination type")
	}
	*typed = append([]string(nil), cached...)
	return nil
}

func (m *mockPeerCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ids, ok := value.([]string); ok {
		m.sets[key] = append([]string(nil), ids...)
		m.values[key] = append([]string(nil), ids...)
	}
	return nil
}

func (m *mockPeerCache) Delete(ctx context.Context, keys ...string) error {
	m.deleted = append(m.deleted, keys...)
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

type mockSlotReader struct {
	slots map[string][]models.AvailabilitySlot
}

func (m *mockSlotReader) ListSlots(ctx context.Context, mentorID string) ([]models.AvailabilitySlot, error) {
	return append([]models.AvailabilitySlot(nil), m.slots[mentorID]...), nil
}

func studentUser(id, college, name string) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", FullName: name, Role: models.RoleStudent, CollegeID: college, Active: true}
}

func mentorUser(id, college, name string) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", FullName: name, Role: models.RoleMentor, CollegeID: college, Active: true}
}

func newConnectionFixture() (*LedgerService, *mockRequestStore, *mockPeerCache, *mockUserReader) {
	store := newMockRequestStore()
	users := &mockUserReader{users: map[string]*models.User{
		"u1": studentUser("u1", "college-1", "Alice"),
		"u2": studentUser("u2", "college-1", "Bob"),
		"u3": studentUser("u3", "college-2", "Cara"),
	}}
	visibility := NewVisibilityService(users, nil)
	cache := newMockPeerCache()
	ledger := NewLedgerService(store, cache, nil, nil, NewConnectionPolicy(visibility, store))
	return ledger, store, cache, users
}

func actorFor(user *models.User) models.Actor {
	return models.Actor{ID: user.ID, Role: user.Role, CollegeID: user.CollegeID}
}

func TestLedgerCreateConnection(t *testing.T) {
	ledger, store, cache, users := newConnectionFixture()

	detail, err := ledger.Create(context.Background(), actorFor(users.users["u1"]), CreateRequestInput{
		Kind:     models.KindConnection,
		TargetID: "u2",
		Message:  "let's collaborate",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, detail.Status)
	assert.Equal(t, "u1", detail.RequesterID)
	assert.Len(t, store.requests, 1)
	assert.Contains(t, cache.deleted, "peers:u1")
	assert.Contains(t, cache.deleted, "peers:u2")
}

func TestLedgerCreateDuplicatePendingConflict(t *testing.T) {
	ledger, store, _, users := newConnectionFixture()
	actor := actorFor(users.users["u1"])

	_, err := ledger.Create(context.Background(), actor, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	_, err = ledger.Create(context.Background(), actor, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Len(t, store.requests, 1)
}

func TestLedgerCreateCrossTenantForbidden(t *testing.T) {
	ledger, store, _, users := newConnectionFixture()

	_, err := ledger.Create(context.Background(), actorFor(users.users["u1"]), CreateRequestInput{
		Kind:     models.KindConnection,
		TargetID: "u3",
	})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
	assert.Empty(t, store.requests)
}

func TestLedgerCreateSelfForbidden(t *testing.T) {
	ledger, _, _, users := newConnectionFixture()

	_, err := ledger.Create(context.Background(), actorFor(users.users["u1"]), CreateRequestInput{
		Kind:     models.KindConnection,
		TargetID: "u1",
	})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestLedgerRespondOnlyTarget(t *testing.T) {
	ledger, _, _, users := newConnectionFixture()
	requester := actorFor(users.users["u1"])

	detail, err := ledger.Create(context.Background(), requester, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	_, err = ledger.Respond(context.Background(), requester, detail.ID, models.DecisionAccept)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestLedgerRespondTerminalIsIrreversible(t *testing.T) {
	ledger, _, _, users := newConnectionFixture()
	requester := actorFor(users.users["u1"])
	target := actorFor(users.users["u2"])

	detail, err := ledger.Create(context.Background(), requester, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	accepted, err := ledger.Respond(context.Background(), target, detail.ID, models.DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	_, err = ledger.Respond(context.Background(), target, detail.ID, models.DecisionReject)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInvalidState.Code, typed.Code)
}

func TestLedgerRespondLosesRaceToWithdrawal(t *testing.T) {
	ledger, store, _, users := newConnectionFixture()
	requester := actorFor(users.users["u1"])
	target := actorFor(users.users["u2"])

	detail, err := ledger.Create(context.Background(), requester, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	// Simulate a withdrawal landing between the responder's read and the
	// conditional update.
	delete(store.requests, detail.ID)

	_, err = ledger.Respond(context.Background(), target, detail.ID, models.DecisionAccept)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestLedgerWithdrawPendingOnly(t *testing.T) {
	ledger, _, _, users := newConnectionFixture()
	requester := actorFor(users.users["u1"])
	target := actorFor(users.users["u2"])

	detail, err := ledger.Create(context.Background(), requester, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	_, err = ledger.Respond(context.Background(), target, detail.ID, models.DecisionAccept)
	require.NoError(t, err)

	err = ledger.Withdraw(context.Background(), requester, detail.ID)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInvalidState.Code, typed.Code)
}

func TestLedgerWithdrawRequesterOnly(t *testing.T) {
	ledger, _, _, users := newConnectionFixture()
	requester := actorFor(users.users["u1"])
	target := actorFor(users.users["u2"])

	detail, err := ledger.Create(context.Background(), requester, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	err = ledger.Withdraw(context.Background(), target, detail.ID)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestLedgerWithdrawRemovesRequest(t *testing.T) {
	ledger, store, cache, users := newConnectionFixture()
	requester := actorFor(users.users["u1"])

	detail, err := ledger.Create(context.Background(), requester, CreateRequestInput{Kind: models.KindConnection, TargetID: "u2"})
	require.NoError(t, err)

	cache.deleted = nil
	err = ledger.Withdraw(context.Background(), requester, detail.ID)
	require.NoError(t, err)
	assert.Empty(t, store.requests)
	assert.Contains(t, cache.deleted, "peers:u1")
	assert.Contains(t, cache.deleted, "peers:u2")
}
