package comparison

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/selection"
	"lanepricing/internal/types"
)

type memBoards struct {
	mu       sync.Mutex
	sessions map[types.ID]Session
}

func newMemBoards() *memBoards {
	return &memBoards{sessions: map[types.ID]Session{}}
}

func (m *memBoards) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrConflict
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memBoards) Get(_ context.Context, id types.ID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Board = s.Board.Clone()
	return &s, nil
}

func (m *memBoards) Update(_ context.Context, id types.ID, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Board = s.Board.Clone()
	if err := fn(&s); err != nil {
		return nil, err
	}
	m.sessions[id] = s
	return &s, nil
}

func (m *memBoards) Delete(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

type fakeOfferer struct {
	offer lane.Offer
	err   error
}

func (f fakeOfferer) Offer(_ context.Context, mode lane.Mode, q lane.Query) (lane.Offer, error) {
	if f.err != nil {
		return lane.Offer{}, f.err
	}
	if err := q.Validate(); err != nil {
		return lane.Offer{}, err
	}
	return f.offer, nil
}

type fakeSuppliers struct {
	mu      sync.Mutex
	created []*PreferredSupplier
	err     error
	// entered and hold, when set, park Create until the test lets it finish.
	entered chan struct{}
	hold    chan struct{}
}

func (f *fakeSuppliers) Create(_ context.Context, ps *PreferredSupplier) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, ps)
	return nil
}

func (f *fakeSuppliers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeRequester struct {
	accounts []types.ID
	query    lane.Query
}

func (f *fakeRequester) RequestPrices(_ context.Context, accountIDs []types.ID, q lane.Query) ([]types.ID, error) {
	f.accounts = accountIDs
	f.query = q
	ids := make([]types.ID, len(accountIDs))
	for i := range accountIDs {
		ids[i] = types.NewID()
	}
	return ids, nil
}

var query = lane.Query{SeasonID: "s1", TrailerType: lane.DefaultTrailerType, LoadingLocationID: "lo1", DeliveryLocationID: "de1"}

func offer() lane.Offer {
	rows := []lane.PriceRow{
		{AccountID: "a", LanePriceID: "lp-a", FreightPrice: decimal.NewFromInt(100), Surcharges: map[string]decimal.Decimal{
			pricing.KeyFuelSurcharge:   decimal.NewFromInt(10),
			pricing.KeyAdditionalStops: decimal.NewFromInt(5),
			pricing.KeyWaitingHour:     decimal.NewFromInt(20),
		}},
		{AccountID: "b", LanePriceID: "lp-b", FreightPrice: decimal.NewFromInt(90)},
	}
	return lane.Offer{
		LaneName:   "Venlo → Milano",
		Candidates: lane.BuildCandidates(pricing.DefaultCatalog(), lane.ModeCompare, rows),
		Potential:  []lane.Carrier{{AccountID: "p1", Name: "Papa", Index: 1}},
	}
}

type fixture struct {
	svc       *Service
	boards    *memBoards
	suppliers *fakeSuppliers
	requests  *fakeRequester
}

func newFixture(policy selection.ResortPolicy) fixture {
	f := fixture{boards: newMemBoards(), suppliers: &fakeSuppliers{}, requests: &fakeRequester{}}
	f.svc = NewService(fakeOfferer{offer: offer()}, f.boards, f.suppliers, f.requests, policy, nil)
	return f
}

func TestService_OpenApplySubmit(t *testing.T) {
	f := newFixture(selection.KeepOrder)
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query})
	require.NoError(t, err)
	assert.Equal(t, selection.StageSelect, sess.Board.Stage)
	assert.Equal(t, selection.KeepOrder, sess.Board.Policy)
	assert.Equal(t, "Venlo → Milano", sess.LaneName)

	sess, err = f.svc.Apply(ctx, sess.ID, selection.ToggleSurcharge{CandidateID: "a", Key: pricing.KeyWaitingHour, Included: true})
	require.NoError(t, err)
	// 100 + 10 fuel + 10 stops + 20 waiting
	assert.Equal(t, "140.00", sess.Board.Candidates[0].Total.StringFixed(2))

	sess, err = f.svc.Apply(ctx, sess.ID, selection.SelectPrimary{CandidateID: "b"})
	require.NoError(t, err)
	assert.Equal(t, types.ID("a"), sess.Board.Candidates[0].ID, "keep_order leaves order untouched")

	_, err = f.svc.Submit(ctx, sess.ID)
	assert.ErrorIs(t, err, selection.ErrInvalidStage, "submit requires review stage")

	sess, err = f.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ID("b"), sess.Board.Candidates[0].ID)

	sess, err = f.svc.Back(ctx, sess.ID)
	require.NoError(t, err)
	sess, err = f.svc.Apply(ctx, sess.ID, selection.SelectPrimary{CandidateID: "a"})
	require.NoError(t, err)
	sess, err = f.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	ps, err := f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ID("a"), ps.AccountID)
	assert.Equal(t, types.ID("lp-a"), ps.LanePriceID)
	assert.Equal(t, "140.00", ps.TotalPrice.StringFixed(2))
	assert.True(t, ps.Configs[pricing.KeyWaitingHour].Included)
	assert.Equal(t, 1, ps.Configs[pricing.KeyWaitingHour].Quantity)
	assert.False(t, ps.Configs[pricing.KeyTailLift].Included)
	assert.Zero(t, ps.Configs[pricing.KeyTailLift].Quantity)
	assert.Len(t, f.suppliers.created, 1)

	_, err = f.svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound, "board is closed after submit")
}

func TestService_OpenPolicyOverride(t *testing.T) {
	f := newFixture(selection.KeepOrder)
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query, Policy: selection.Resort})
	require.NoError(t, err)
	sess, err = f.svc.Apply(ctx, sess.ID, selection.SelectPrimary{CandidateID: "b"})
	require.NoError(t, err)
	assert.Equal(t, types.ID("b"), sess.Board.Candidates[0].ID)
}

func TestService_Errors(t *testing.T) {
	f := newFixture(selection.KeepOrder)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare})
	assert.ErrorIs(t, err, lane.ErrInvalidQuery)

	_, err = f.svc.Apply(ctx, "missing", selection.SelectPrimary{CandidateID: "a"})
	assert.ErrorIs(t, err, ErrNotFound)

	sess, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, sess.ID, selection.SelectPrimary{CandidateID: "zzz"})
	assert.ErrorIs(t, err, selection.ErrUnknownCandidate)

	got, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Board.Candidates[0].Selection.Primary, "failed action leaves board unchanged")

	require.NoError(t, f.svc.Close(ctx, sess.ID))
	assert.ErrorIs(t, f.svc.Close(ctx, sess.ID), ErrNotFound)

	f.suppliers.err = errors.New("insert failed")
	sess, _ = f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query})
	_, err = f.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, sess.ID)
	assert.ErrorIs(t, err, f.suppliers.err)
	got, err = f.svc.Get(ctx, sess.ID)
	require.NoError(t, err, "board survives a failed submit")
	assert.False(t, got.Closing)

	f.suppliers.err = nil
	_, err = f.svc.Submit(ctx, sess.ID)
	assert.NoError(t, err, "released board can be submitted again")
}

func TestService_ConcurrentSubmitCreatesOneSupplier(t *testing.T) {
	f := newFixture(selection.KeepOrder)
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query})
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Submit(ctx, sess.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, selection.ErrInvalidStage) || errors.Is(err, ErrNotFound), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.suppliers.count())
}

func TestService_SubmitWhileClaimed(t *testing.T) {
	f := newFixture(selection.KeepOrder)
	f.suppliers.entered = make(chan struct{})
	f.suppliers.hold = make(chan struct{})
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query})
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(ctx, sess.ID)
		first <- err
	}()
	<-f.suppliers.entered

	_, err = f.svc.Submit(ctx, sess.ID)
	assert.ErrorIs(t, err, selection.ErrInvalidStage)
	_, err = f.svc.Apply(ctx, sess.ID, selection.SelectPrimary{CandidateID: "b"})
	assert.ErrorIs(t, err, selection.ErrInvalidStage, "claimed board rejects actions")

	close(f.suppliers.hold)
	require.NoError(t, <-first)
	assert.Equal(t, 1, f.suppliers.count())
	_, err = f.svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_RequestPrices(t *testing.T) {
	f := newFixture(selection.KeepOrder)
	ctx := context.Background()

	compare, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeCompare, Query: query})
	require.NoError(t, err)
	_, err = f.svc.RequestPrices(ctx, compare.ID, []types.ID{"p1"})
	assert.ErrorIs(t, err, ErrNotSpotBoard)

	spot, err := f.svc.Open(ctx, OpenCommand{Mode: lane.ModeSpot, Query: query})
	require.NoError(t, err)

	_, err = f.svc.RequestPrices(ctx, spot.ID, nil)
	assert.ErrorIs(t, err, ErrNoCarriers)
	_, err = f.svc.RequestPrices(ctx, spot.ID, []types.ID{"stranger"})
	assert.ErrorIs(t, err, ErrUnknownCarrier)

	ids, err := f.svc.RequestPrices(ctx, spot.ID, []types.ID{"p1"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.Equal(t, []types.ID{"p1"}, f.requests.accounts)
	assert.Equal(t, query, f.requests.query)

	_, err = f.svc.Get(ctx, spot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
