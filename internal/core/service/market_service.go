package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/asset-market/internal/core/domain"
	"github.com/rl1809/asset-market/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// Config carries the identities the market operates under: the operator
// account the registries authorize for transfers, the escrow account that
// holds payments mid-settlement, and the admin allowed to toggle the pause
// gate. The registry ids label lifecycle events for external indexers.
type Config struct {
	Operator           string
	Escrow             string
	Admin              string
	UniqueRegistryID   string
	QuantityRegistryID string
}

// MarketService owns the sale ledger and settles purchases against the
// asset registries and the value ledger. All ledger mutation is serialized
// by a single mutex; external collaborator calls run outside the critical
// section and are compensated on failure, so bookkeeping is always
// committed before the registry can call back in.
type MarketService struct {
	cfg      Config
	unique   port.UniqueRegistry
	quantity port.QuantityRegistry
	bank     port.ValueLedger
	repo     port.SaleRepository  // optional durable audit copy
	events   port.EventPublisher  // optional, best-effort
	cache    port.CacheRepository // optional, purchase idempotency
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	sales  map[uint64]*domain.Sale
	nextID uint64
	paused bool
}

// Receipt summarizes a settled purchase.
type Receipt struct {
	SaleID   uint64
	Quantity uint64
	Cost     uint64
	Refund   uint64
}

func NewMarketService(cfg Config, unique port.UniqueRegistry, quantity port.QuantityRegistry, bank port.ValueLedger, repo port.SaleRepository, events port.EventPublisher, cache port.CacheRepository, logger *zap.Logger) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{
		cfg:      cfg,
		unique:   unique,
		quantity: quantity,
		bank:     bank,
		repo:     repo,
		events:   events,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		sales:    make(map[uint64]*domain.Sale),
	}
}

// Hydrate seeds the ledger from previously persisted sales and advances
// the id sequence past the highest one seen. Call before serving traffic.
func (s *MarketService) Hydrate(sales []domain.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range sales {
		sale := sales[i]
		s.sales[sale.ID] = &sale
		if sale.ID >= s.nextID {
			s.nextID = sale.ID + 1
		}
	}
}

// Post lists an asset for sale. No custody moves at posting time; the
// market only verifies that the seller owns the asset and has authorized
// the operator, and re-verifies both at purchase time.
func (s *MarketService) Post(ctx context.Context, seller string, kind domain.AssetKind, assetID, unitPrice, quantity uint64, start, end int64) (uint64, error) {
	if unitPrice == 0 {
		return 0, domain.ErrPriceZero
	}
	if quantity == 0 {
		return 0, domain.ErrQuantityLow
	}
	if kind == domain.AssetUnique && quantity != 1 {
		return 0, domain.ErrQuantityHigh
	}
	if s.Paused() {
		return 0, domain.ErrPaused
	}

	if err := s.checkSellerAuthorization(ctx, seller, kind, assetID, quantity); err != nil {
		return 0, err
	}

	created := s.now()
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return 0, domain.ErrPaused
	}
	id := s.nextID
	s.nextID++
	sale := &domain.Sale{
		ID:        id,
		Seller:    seller,
		Kind:      kind,
		AssetID:   assetID,
		UnitPrice: unitPrice,
		Total:     quantity,
		Remaining: quantity,
		Start:     start,
		End:       end,
		Outcome:   domain.OutcomeOpen,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
	s.sales[id] = sale
	record := *sale
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.SaveSale(ctx, record); err != nil {
			// Roll the listing back out of the ledger; the id is reused
			// only if no later post slipped in.
			s.mu.Lock()
			delete(s.sales, id)
			if s.nextID == id+1 {
				s.nextID = id
			}
			s.mu.Unlock()
			return 0, fmt.Errorf("persist sale: %w", err)
		}
	}

	s.publishSaleCreated(ctx, record)
	s.logger.Info("sale posted",
		zap.Uint64("sale_id", id),
		zap.String("seller", seller),
		zap.String("kind", string(kind)),
		zap.Uint64("asset_id", assetID),
		zap.Uint64("unit_price", unitPrice),
		zap.Uint64("quantity", quantity),
	)
	return id, nil
}

func (s *MarketService) checkSellerAuthorization(ctx context.Context, seller string, kind domain.AssetKind, assetID, quantity uint64) error {
	switch kind {
	case domain.AssetUnique:
		paused, err := s.unique.Paused(ctx)
		if err != nil {
			return fmt.Errorf("registry pause check: %w", err)
		}
		if paused {
			return domain.ErrPaused
		}
		owner, err := s.unique.OwnerOf(ctx, assetID)
		if err != nil {
			return fmt.Errorf("owner lookup: %w", err)
		}
		if owner != seller {
			return domain.ErrNotApproved
		}
		ok, err := s.unique.Approved(ctx, s.cfg.Operator, assetID)
		if err != nil {
			return fmt.Errorf("approval lookup: %w", err)
		}
		if !ok {
			return domain.ErrNotApproved
		}
	case domain.AssetQuantity:
		paused, err := s.quantity.Paused(ctx)
		if err != nil {
			return fmt.Errorf("registry pause check: %w", err)
		}
		if paused {
			return domain.ErrPaused
		}
		balance, err := s.quantity.BalanceOf(ctx, seller, assetID)
		if err != nil {
			return fmt.Errorf("balance lookup: %w", err)
		}
		if balance < quantity {
			return domain.ErrNotApproved
		}
		ok, err := s.quantity.IsApprovedForAll(ctx, seller, s.cfg.Operator)
		if err != nil {
			return fmt.Errorf("approval lookup: %w", err)
		}
		if !ok {
			return domain.ErrNotApproved
		}
	default:
		return fmt.Errorf("unknown asset kind %q", kind)
	}
	return nil
}

// Buy purchases quantity units of a sale, paying payment of native value.
// Excess over the cost is refunded in the same operation. A non-empty
// requestID gives at-most-once semantics through the idempotency cache.
func (s *MarketService) Buy(ctx context.Context, buyer string, saleID, quantity, payment uint64, requestID string) (Receipt, error) {
	if requestID != "" && s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, "purchase:"+requestID)
		if err != nil {
			return Receipt{}, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return Receipt{}, ErrDuplicateRequest
		}
	}

	// Commit the bookkeeping before any external call. A registry that
	// calls back into Buy during its transfer sees the decremented
	// remaining quantity and cannot oversell the sale.
	now := s.now()
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return Receipt{}, domain.ErrPaused
	}
	sale, ok := s.sales[saleID]
	if !ok {
		s.mu.Unlock()
		return Receipt{}, domain.ErrSaleNotFound
	}
	if st := domain.Resolve(sale, now.Unix()); st != domain.StatusActive {
		s.mu.Unlock()
		return Receipt{}, domain.ErrSaleInactive
	}
	if quantity < 1 {
		s.mu.Unlock()
		return Receipt{}, domain.ErrQuantityLow
	}
	if quantity > sale.Remaining {
		s.mu.Unlock()
		return Receipt{}, domain.ErrQuantityHigh
	}
	cost, err := sale.Cost(quantity)
	if err != nil {
		s.mu.Unlock()
		return Receipt{}, err
	}
	if payment < cost {
		s.mu.Unlock()
		return Receipt{}, domain.ErrPaymentLow
	}
	sale.Remaining -= quantity
	if sale.Remaining == 0 {
		sale.Outcome = domain.OutcomeComplete
	}
	sale.Version++
	sale.UpdatedAt = now
	record := *sale
	s.mu.Unlock()

	refund := payment - cost

	restore := func() {
		s.mu.Lock()
		sale.Remaining += quantity
		if sale.Outcome == domain.OutcomeComplete {
			sale.Outcome = domain.OutcomeOpen
		}
		sale.Version++
		sale.UpdatedAt = s.now()
		s.mu.Unlock()
	}

	// Collect the full payment into escrow; every later failure refunds
	// from there.
	if err := s.bank.Transfer(ctx, buyer, s.cfg.Escrow, payment); err != nil {
		restore()
		return Receipt{}, fmt.Errorf("collect payment: %w", err)
	}

	// Move the asset, re-verifying the seller's authorization as of now.
	if err := s.transferAsset(ctx, record, buyer, quantity); err != nil {
		if rbErr := s.bank.Transfer(ctx, s.cfg.Escrow, buyer, payment); rbErr != nil {
			s.logger.Error("CRITICAL: payment refund failed during rollback",
				zap.Uint64("sale_id", saleID), zap.String("buyer", buyer), zap.Error(rbErr))
		}
		restore()
		return Receipt{}, fmt.Errorf("asset transfer: %w", err)
	}

	// Pay the seller and refund the excess.
	if err := s.bank.Transfer(ctx, s.cfg.Escrow, record.Seller, cost); err != nil {
		if rbErr := s.reverseAsset(ctx, record, buyer, quantity); rbErr != nil {
			s.logger.Error("CRITICAL: asset rollback failed",
				zap.Uint64("sale_id", saleID), zap.String("buyer", buyer), zap.Error(rbErr))
		}
		if rbErr := s.bank.Transfer(ctx, s.cfg.Escrow, buyer, payment); rbErr != nil {
			s.logger.Error("CRITICAL: payment refund failed during rollback",
				zap.Uint64("sale_id", saleID), zap.String("buyer", buyer), zap.Error(rbErr))
		}
		restore()
		return Receipt{}, fmt.Errorf("pay seller: %w", err)
	}
	if refund > 0 {
		if err := s.bank.Transfer(ctx, s.cfg.Escrow, buyer, refund); err != nil {
			// The refund is part of the purchase; claw everything back.
			if rbErr := s.bank.Transfer(ctx, record.Seller, s.cfg.Escrow, cost); rbErr != nil {
				s.logger.Error("CRITICAL: proceeds clawback failed",
					zap.Uint64("sale_id", saleID), zap.String("seller", record.Seller), zap.Error(rbErr))
			}
			if rbErr := s.reverseAsset(ctx, record, buyer, quantity); rbErr != nil {
				s.logger.Error("CRITICAL: asset rollback failed",
					zap.Uint64("sale_id", saleID), zap.String("buyer", buyer), zap.Error(rbErr))
			}
			if rbErr := s.bank.Transfer(ctx, s.cfg.Escrow, buyer, payment); rbErr != nil {
				s.logger.Error("CRITICAL: payment refund failed during rollback",
					zap.Uint64("sale_id", saleID), zap.String("buyer", buyer), zap.Error(rbErr))
			}
			restore()
			return Receipt{}, fmt.Errorf("refund buyer: %w", err)
		}
	}

	if s.repo != nil {
		// The audit copy trails the settled purchase; a write failure here
		// must not unwind moved value, so it is logged and left to the
		// next successful update of the same sale.
		if err := s.repo.UpdateSale(ctx, record); err != nil {
			s.logger.Error("durable sale update failed",
				zap.Uint64("sale_id", saleID), zap.Error(err))
		}
	}

	s.publishPurchase(ctx, record, buyer)
	s.logger.Info("purchase settled",
		zap.Uint64("sale_id", saleID),
		zap.String("buyer", buyer),
		zap.String("seller", record.Seller),
		zap.Uint64("quantity", quantity),
		zap.Uint64("cost", cost),
		zap.Uint64("refund", refund),
	)
	return Receipt{SaleID: saleID, Quantity: quantity, Cost: cost, Refund: refund}, nil
}

func (s *MarketService) transferAsset(ctx context.Context, sale domain.Sale, buyer string, quantity uint64) error {
	switch sale.Kind {
	case domain.AssetUnique:
		return s.unique.Transfer(ctx, s.cfg.Operator, sale.Seller, buyer, sale.AssetID)
	case domain.AssetQuantity:
		return s.quantity.Transfer(ctx, s.cfg.Operator, sale.Seller, buyer, sale.AssetID, quantity)
	}
	return fmt.Errorf("unknown asset kind %q", sale.Kind)
}

func (s *MarketService) reverseAsset(ctx context.Context, sale domain.Sale, buyer string, quantity uint64) error {
	switch sale.Kind {
	case domain.AssetUnique:
		return s.unique.Transfer(ctx, s.cfg.Operator, buyer, sale.Seller, sale.AssetID)
	case domain.AssetQuantity:
		return s.quantity.Transfer(ctx, s.cfg.Operator, buyer, sale.Seller, sale.AssetID, quantity)
	}
	return fmt.Errorf("unknown asset kind %q", sale.Kind)
}

// Cancel resolves an open sale to canceled. Only the seller may cancel,
// and only while the sale is pending or active. Cancellation is never
// blocked by the pause gate.
func (s *MarketService) Cancel(ctx context.Context, caller string, saleID uint64) error {
	now := s.now()
	s.mu.Lock()
	sale, ok := s.sales[saleID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrSaleNotFound
	}
	if sale.Seller != caller {
		s.mu.Unlock()
		return domain.ErrOnlySaleOwner
	}
	switch domain.Resolve(sale, now.Unix()) {
	case domain.StatusPending, domain.StatusActive:
	default:
		s.mu.Unlock()
		return domain.ErrSaleInactive
	}
	sale.Outcome = domain.OutcomeCanceled
	sale.Version++
	sale.UpdatedAt = now
	record := *sale
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.UpdateSale(ctx, record); err != nil {
			// Reopen so the seller can retry.
			s.mu.Lock()
			sale.Outcome = domain.OutcomeOpen
			sale.Version++
			sale.UpdatedAt = s.now()
			s.mu.Unlock()
			return fmt.Errorf("persist cancel: %w", err)
		}
	}

	s.logger.Info("sale canceled", zap.Uint64("sale_id", saleID), zap.String("seller", caller))
	return nil
}

// Pause blocks Post and Buy until Unpause. Existing sale records are
// untouched and cancellation stays available.
func (s *MarketService) Pause(caller string) error {
	if caller != s.cfg.Admin {
		return domain.ErrOnlyOwner
	}
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.logger.Warn("market paused", zap.String("caller", caller))
	return nil
}

func (s *MarketService) Unpause(caller string) error {
	if caller != s.cfg.Admin {
		return domain.ErrOnlyOwner
	}
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.logger.Warn("market unpaused", zap.String("caller", caller))
	return nil
}

func (s *MarketService) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SaleStatus derives the observable status of a sale at the current time.
func (s *MarketService) SaleStatus(saleID uint64) (domain.SaleStatus, error) {
	now := s.now().Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok {
		return "", domain.ErrSaleNotFound
	}
	return domain.Resolve(sale, now), nil
}

// Sale returns a copy of the full sale record.
func (s *MarketService) Sale(saleID uint64) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return *sale, nil
}

// Sales returns copies of all sales, optionally filtered by seller,
// ordered by id. Completed and canceled sales are retained indefinitely.
func (s *MarketService) Sales(seller string) []domain.Sale {
	s.mu.Lock()
	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if seller != "" && sale.Seller != seller {
			continue
		}
		out = append(out, *sale)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MarketService) registryID(kind domain.AssetKind) string {
	if kind == domain.AssetUnique {
		return s.cfg.UniqueRegistryID
	}
	return s.cfg.QuantityRegistryID
}

func (s *MarketService) publishSaleCreated(ctx context.Context, record domain.Sale) {
	if s.events == nil {
		return
	}
	ev := domain.SaleCreated{
		Seller:   record.Seller,
		AssetID:  record.AssetID,
		SaleID:   record.ID,
		Registry: s.registryID(record.Kind),
		Kind:     record.Kind,
	}
	if err := s.events.PublishSaleCreated(ctx, ev); err != nil {
		s.logger.Error("publish sale created failed", zap.Uint64("sale_id", record.ID), zap.Error(err))
	}
}

func (s *MarketService) publishPurchase(ctx context.Context, record domain.Sale, buyer string) {
	if s.events == nil {
		return
	}
	ev := domain.Purchase{
		Buyer:    buyer,
		AssetID:  record.AssetID,
		SaleID:   record.ID,
		Seller:   record.Seller,
		Registry: s.registryID(record.Kind),
		Kind:     record.Kind,
	}
	if err := s.events.PublishPurchase(ctx, ev); err != nil {
		s.logger.Error("publish purchase failed", zap.Uint64("sale_id", record.ID), zap.Error(err))
	}
}
