// README: Price request service: creation, carrier listing, drafts, submission and stage changes.
package pricerequest

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/types"
)

// Repository is the persistent side of price requests; *Store implements it.
type Repository interface {
	Create(ctx context.Context, reqs []*PriceRequest, q lane.Query) error
	Get(ctx context.Context, id types.ID) (*PriceRequest, error)
	Lanes(ctx context.Context, id types.ID) ([]LaneRow, error)
	ExistingLanes(ctx context.Context, pr *PriceRequest) ([]LaneRow, error)
	AccountCharges(ctx context.Context, accountID types.ID) (map[string]decimal.Decimal, error)
	CountryNames(ctx context.Context) (map[string]string, error)
	AccessCode(ctx context.Context, id types.ID) (string, error)
	Transition(ctx context.Context, id types.ID, from, to Stage, version int, actor string) error
	Submit(ctx context.Context, sub *Submission) error
}

type Service struct {
	repo     Repository
	drafts   DraftStore
	catalog  *pricing.Catalog
	pageSize int
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, drafts DraftStore, catalog *pricing.Catalog, pageSize int, log *zap.Logger) *Service {
	if catalog == nil {
		catalog = pricing.DefaultCatalog()
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, drafts: drafts, catalog: catalog, pageSize: pageSize, log: log, now: time.Now}
}

type CreateCommand struct {
	AccountIDs      []types.ID
	Query           lane.Query
	RequiredCharges []string
}

// Create opens one price request per carrier for the queried lane.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) ([]types.ID, error) {
	if err := cmd.Query.Validate(); err != nil {
		return nil, err
	}
	for _, k := range cmd.RequiredCharges {
		if _, ok := s.catalog.Lookup(k); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCharge, k)
		}
	}

	now := s.now().UTC()
	seen := make(map[types.ID]bool, len(cmd.AccountIDs))
	var reqs []*PriceRequest
	var ids []types.ID
	for _, accountID := range cmd.AccountIDs {
		if accountID == "" || seen[accountID] {
			continue
		}
		seen[accountID] = true
		id := types.NewID()
		reqs = append(reqs, &PriceRequest{
			ID:              id,
			Name:            requestName(id),
			AccountID:       accountID,
			Query:           cmd.Query,
			Stage:           StageRequested,
			RequiredCharges: append([]string{}, cmd.RequiredCharges...),
			CreatedAt:       now,
		})
		ids = append(ids, id)
	}
	if len(reqs) == 0 {
		return nil, ErrNoCarriers
	}

	if err := s.repo.Create(ctx, reqs, cmd.Query); err != nil {
		s.log.Error("create price requests", zap.Error(err))
		return nil, fmt.Errorf("create price requests: %w", err)
	}
	s.log.Info("price requests created",
		zap.Int("count", len(reqs)),
		zap.String("season_id", string(cmd.Query.SeasonID)),
	)
	return ids, nil
}

// RequestPrices creates spot price requests without required charges.
func (s *Service) RequestPrices(ctx context.Context, accountIDs []types.ID, q lane.Query) ([]types.ID, error) {
	return s.Create(ctx, CreateCommand{AccountIDs: accountIDs, Query: q})
}

func (s *Service) Get(ctx context.Context, id types.ID) (*PriceRequest, error) {
	return s.repo.Get(ctx, id)
}

// CheckAccess compares the carrier's access code in constant time. An
// account without a code never grants access.
func (s *Service) CheckAccess(ctx context.Context, id types.ID, code string) error {
	want, err := s.repo.AccessCode(ctx, id)
	if err != nil {
		return err
	}
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
		return ErrAccessDenied
	}
	return nil
}

// Lanes lists one tab of the request with unsaved drafts applied.
func (s *Service) Lanes(ctx context.Context, id types.ID, f LaneFilter) (LanePage, error) {
	pr, err := s.repo.Get(ctx, id)
	if err != nil {
		return LanePage{}, err
	}

	var lanes, existing []LaneRow
	var names map[string]string
	var draft Draft
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lanes, err = s.repo.Lanes(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		existing, err = s.repo.ExistingLanes(gctx, pr)
		return err
	})
	g.Go(func() (err error) {
		names, err = s.repo.CountryNames(gctx)
		return err
	})
	if pr.Editable() {
		g.Go(func() (err error) {
			draft, err = s.currentDraft(gctx, pr)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return LanePage{}, fmt.Errorf("load lanes: %w", err)
	}

	f.PageSize = s.pageSize
	return ListLanes(
		ApplyLaneDrafts(lanes, draft.Lanes),
		ApplyLaneDrafts(existing, draft.Existing),
		f, !pr.Editable(), names,
	), nil
}

// Draft returns the saved draft together with the stored account charges.
func (s *Service) Draft(ctx context.Context, id types.ID) (Draft, map[string]string, error) {
	pr, err := s.repo.Get(ctx, id)
	if err != nil {
		return Draft{}, nil, err
	}
	stored, err := s.repo.AccountCharges(ctx, pr.AccountID)
	if err != nil {
		return Draft{}, nil, err
	}
	draft, err := s.currentDraft(ctx, pr)
	if err != nil {
		return Draft{}, nil, err
	}
	return draft, ApplyCharges(stored, draft.Charges), nil
}

// currentDraft returns the saved draft when it was saved in the request's
// current editing round, and an empty draft otherwise.
func (s *Service) currentDraft(ctx context.Context, pr *PriceRequest) (Draft, error) {
	draft, err := s.drafts.Get(ctx, pr.ID)
	if err != nil {
		return Draft{}, err
	}
	if draft.StageVersion != pr.StageVersion {
		return Draft{StageVersion: pr.StageVersion}, nil
	}
	return draft, nil
}

// SaveDraft merges an autosaved change into the request's draft.
func (s *Service) SaveDraft(ctx context.Context, id types.ID, change Draft) (Draft, error) {
	if change.Empty() {
		return Draft{}, ErrNoChanges
	}
	pr, err := s.repo.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if !pr.Editable() {
		return Draft{}, ErrLocked
	}
	for k := range change.Charges {
		if _, ok := s.catalog.Lookup(k); !ok {
			return Draft{}, fmt.Errorf("%w: %s", ErrUnknownCharge, k)
		}
	}
	change.StageVersion = pr.StageVersion
	change.UpdatedAt = s.now().UTC()
	saved, err := s.drafts.Save(ctx, id, change)
	if err != nil {
		return Draft{}, err
	}

	// A submit or cancel may have landed while the draft was written.
	after, err := s.repo.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if !after.Editable() || after.StageVersion != pr.StageVersion {
		return Draft{}, ErrLocked
	}
	return saved, nil
}

func (s *Service) DiscardDraft(ctx context.Context, id types.ID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}

// Submit validates the draft against the stored rows, persists it and moves
// the request to answer_received.
func (s *Service) Submit(ctx context.Context, id types.ID) (*PriceRequest, error) {
	pr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pr.Editable() {
		return nil, ErrLocked
	}
	draft, err := s.currentDraft(ctx, pr)
	if err != nil {
		return nil, err
	}
	if draft.Empty() {
		return nil, ErrNoChanges
	}

	var lanes, existing []LaneRow
	var stored map[string]decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lanes, err = s.repo.Lanes(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		existing, err = s.repo.ExistingLanes(gctx, pr)
		return err
	})
	g.Go(func() (err error) {
		stored, err = s.repo.AccountCharges(gctx, pr.AccountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	lanes = ApplyLaneDrafts(lanes, draft.Lanes)
	existing = ApplyLaneDrafts(existing, draft.Existing)
	if err := ValidateSubmission(lanes, pr.RequiredCharges, ApplyCharges(stored, draft.Charges), s.catalog); err != nil {
		return nil, err
	}

	sub := &Submission{
		Request:  pr,
		Lanes:    priceUpdates(lanes, draft.Lanes),
		Existing: priceUpdates(existing, draft.Existing),
		Charges:  make(map[string]*decimal.Decimal, len(draft.Charges)),
	}
	for k, v := range draft.Charges {
		sub.Charges[k] = parsePrice(v)
	}
	if err := s.repo.Submit(ctx, sub); err != nil {
		s.log.Error("submit price request", zap.String("price_request_id", string(id)), zap.Error(err))
		return nil, fmt.Errorf("submit price request: %w", err)
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		s.log.Warn("clear draft", zap.String("price_request_id", string(id)), zap.Error(err))
	}

	pr.Stage = StageAnswerReceived
	pr.StageVersion++
	answered := s.now().UTC()
	pr.AnsweredAt = &answered
	s.log.Info("price request answered",
		zap.String("price_request_id", string(id)),
		zap.Int("lanes", len(sub.Lanes)),
		zap.Int("existing", len(sub.Existing)),
		zap.Int("charges", len(sub.Charges)),
	)
	return pr, nil
}

// RequestChange asks for edit access after prices were submitted.
func (s *Service) RequestChange(ctx context.Context, id types.ID) (*PriceRequest, error) {
	return s.transition(ctx, id, StageChangeRequested, ActorCarrier)
}

// Reopen grants edit access again.
func (s *Service) Reopen(ctx context.Context, id types.ID) (*PriceRequest, error) {
	return s.transition(ctx, id, StageRequested, ActorInternal)
}

func (s *Service) Cancel(ctx context.Context, id types.ID) (*PriceRequest, error) {
	return s.transition(ctx, id, StageCancelled, ActorInternal)
}

func (s *Service) transition(ctx context.Context, id types.ID, to Stage, actor string) (*PriceRequest, error) {
	pr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(pr.Stage, to) {
		return nil, ErrInvalidStage
	}
	if err := s.repo.Transition(ctx, id, pr.Stage, to, pr.StageVersion, actor); err != nil {
		return nil, err
	}
	s.log.Info("price request stage changed",
		zap.String("price_request_id", string(id)),
		zap.String("from", string(pr.Stage)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)
	pr.Stage = to
	pr.StageVersion++
	return pr, nil
}

// priceUpdates collects the drafted rows; drafts for unknown ids are dropped.
func priceUpdates(rows []LaneRow, drafts []LaneDraft) []PriceUpdate {
	drafted := make(map[types.ID]bool, len(drafts))
	for _, d := range drafts {
		drafted[d.ID] = true
	}
	var out []PriceUpdate
	for _, r := range rows {
		if drafted[r.ID] {
			out = append(out, PriceUpdate{ID: r.ID, FreightPrice: r.FreightPrice, TrailerType: r.TrailerType})
		}
	}
	return out
}

func requestName(id types.ID) string {
	s := strings.ReplaceAll(string(id), "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return "PR-" + strings.ToUpper(s)
}
