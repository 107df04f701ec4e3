// README: Comparison service drives a board from lane query to preferred supplier or price requests.
package comparison

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/selection"
	"lanepricing/internal/types"
)

type Offerer interface {
	Offer(ctx context.Context, mode lane.Mode, q lane.Query) (lane.Offer, error)
}

type SupplierWriter interface {
	Create(ctx context.Context, ps *PreferredSupplier) error
}

// PriceRequester sends spot price requests to carriers.
type PriceRequester interface {
	RequestPrices(ctx context.Context, accountIDs []types.ID, q lane.Query) ([]types.ID, error)
}

type Service struct {
	lanes     Offerer
	boards    BoardStore
	suppliers SupplierWriter
	requests  PriceRequester
	policy    selection.ResortPolicy
	log       *zap.Logger
	now       func() time.Time
}

func NewService(lanes Offerer, boards BoardStore, suppliers SupplierWriter, requests PriceRequester, policy selection.ResortPolicy, log *zap.Logger) *Service {
	if !policy.Valid() {
		policy = selection.KeepOrder
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		lanes:     lanes,
		boards:    boards,
		suppliers: suppliers,
		requests:  requests,
		policy:    policy,
		log:       log,
		now:       time.Now,
	}
}

type OpenCommand struct {
	Mode  lane.Mode
	Query lane.Query
	// Policy overrides the service default when set.
	Policy selection.ResortPolicy
}

func (s *Service) Open(ctx context.Context, cmd OpenCommand) (*Session, error) {
	offer, err := s.lanes.Offer(ctx, cmd.Mode, cmd.Query)
	if err != nil {
		return nil, err
	}
	policy := s.policy
	if cmd.Policy.Valid() {
		policy = cmd.Policy
	}
	now := s.now()
	sess := &Session{
		ID:       types.NewID(),
		Mode:     cmd.Mode,
		Query:    cmd.Query,
		LaneName: offer.LaneName,
		Board: selection.Board{
			Stage:      selection.StageSelect,
			Policy:     policy,
			Candidates: offer.Candidates,
		},
		Potential: offer.Potential,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.boards.Create(ctx, sess); err != nil {
		s.log.Error("create board", zap.Error(err))
		return nil, fmt.Errorf("create board: %w", err)
	}
	s.log.Info("board opened",
		zap.String("board_id", string(sess.ID)),
		zap.String("mode", string(sess.Mode)),
		zap.Int("candidates", len(sess.Board.Candidates)),
	)
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Session, error) {
	return s.boards.Get(ctx, id)
}

// Apply runs one selection action against the stored board.
func (s *Service) Apply(ctx context.Context, id types.ID, a selection.Action) (*Session, error) {
	return s.mutate(ctx, id, func(b selection.Board) (selection.Board, error) {
		return selection.Reduce(b, a)
	})
}

func (s *Service) Advance(ctx context.Context, id types.ID) (*Session, error) {
	return s.mutate(ctx, id, selection.Advance)
}

func (s *Service) Back(ctx context.Context, id types.ID) (*Session, error) {
	return s.mutate(ctx, id, selection.Back)
}

func (s *Service) mutate(ctx context.Context, id types.ID, fn func(selection.Board) (selection.Board, error)) (*Session, error) {
	return s.boards.Update(ctx, id, func(sess *Session) error {
		if sess.Closing {
			return selection.ErrInvalidStage
		}
		next, err := fn(sess.Board)
		if err != nil {
			return err
		}
		sess.Board = next
		sess.UpdatedAt = s.now()
		return nil
	})
}

// Submit records the primary candidate of a reviewed board as preferred
// supplier and closes the board. The board is claimed before the supplier is
// written, so a concurrent submit fails with selection.ErrInvalidStage.
func (s *Service) Submit(ctx context.Context, id types.ID) (*PreferredSupplier, error) {
	var primary pricing.Candidate
	sess, err := s.claim(ctx, id, func(sess *Session) error {
		if sess.Board.Stage != selection.StageReview {
			return selection.ErrInvalidStage
		}
		var ok bool
		if primary, ok = sess.Board.Primary(); !ok {
			return selection.ErrNoPrimarySelection
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps := &PreferredSupplier{
		ID:          types.NewID(),
		AccountID:   primary.ID,
		LanePriceID: primary.LanePriceID,
		Query:       sess.Query,
		TotalPrice:  primary.Total,
		Configs:     surchargeConfigs(primary),
		CreatedAt:   s.now(),
	}
	if err := s.suppliers.Create(ctx, ps); err != nil {
		s.log.Error("create preferred supplier", zap.String("board_id", string(id)), zap.Error(err))
		s.release(ctx, id)
		return nil, fmt.Errorf("create preferred supplier: %w", err)
	}
	s.closeQuietly(ctx, id)
	return ps, nil
}

// surchargeConfigs captures the included and disabled flags of every
// surcharge on the candidate's sheet.
func surchargeConfigs(c pricing.Candidate) map[string]pricing.SurchargeState {
	out := make(map[string]pricing.SurchargeState, len(c.Sheet.Surcharges))
	for _, sc := range c.Sheet.Surcharges {
		st := c.Selection.State(sc.Key)
		if sc.Kind != pricing.KindPerUnit {
			st.Quantity = 0
		}
		out[sc.Key] = st
	}
	return out
}

// RequestPrices asks potential carriers of a spot board for a price and
// closes the board. Like Submit it claims the board first.
func (s *Service) RequestPrices(ctx context.Context, id types.ID, accountIDs []types.ID) ([]types.ID, error) {
	if len(accountIDs) == 0 {
		return nil, ErrNoCarriers
	}
	sess, err := s.claim(ctx, id, func(sess *Session) error {
		if sess.Mode != lane.ModeSpot {
			return ErrNotSpotBoard
		}
		known := make(map[types.ID]bool, len(sess.Potential))
		for _, c := range sess.Potential {
			known[c.AccountID] = true
		}
		for _, a := range accountIDs {
			if !known[a] {
				return fmt.Errorf("%w: %s", ErrUnknownCarrier, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids, err := s.requests.RequestPrices(ctx, accountIDs, sess.Query)
	if err != nil {
		s.log.Error("request spot prices", zap.String("board_id", string(id)), zap.Error(err))
		s.release(ctx, id)
		return nil, fmt.Errorf("request spot prices: %w", err)
	}
	s.closeQuietly(ctx, id)
	return ids, nil
}

// claim marks the board as closing after check passes. A board that is
// already closing cannot be claimed again.
func (s *Service) claim(ctx context.Context, id types.ID, check func(*Session) error) (*Session, error) {
	return s.boards.Update(ctx, id, func(sess *Session) error {
		if sess.Closing {
			return selection.ErrInvalidStage
		}
		if err := check(sess); err != nil {
			return err
		}
		sess.Closing = true
		sess.UpdatedAt = s.now()
		return nil
	})
}

// release hands a claimed board back after its terminal write failed.
func (s *Service) release(ctx context.Context, id types.ID) {
	_, err := s.boards.Update(ctx, id, func(sess *Session) error {
		sess.Closing = false
		sess.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		s.log.Warn("release board", zap.String("board_id", string(id)), zap.Error(err))
	}
}

func (s *Service) Close(ctx context.Context, id types.ID) error {
	return s.boards.Delete(ctx, id)
}

func (s *Service) closeQuietly(ctx context.Context, id types.ID) {
	if err := s.boards.Delete(ctx, id); err != nil {
		s.log.Warn("close board", zap.String("board_id", string(id)), zap.Error(err))
	}
}
