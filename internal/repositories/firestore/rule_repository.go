package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	domain "github.com/orderforge/pricing-api/internal/domain"
	pfirestore "github.com/orderforge/pricing-api/internal/platform/firestore"
	"github.com/orderforge/pricing-api/internal/platform/observability"
	"github.com/orderforge/pricing-api/internal/repositories"
)

const (
	pricingRulesCollection  = "pricingRules"
	taxRulesCollection      = "taxRules"
	shippingZonesCollection = "shippingZones"

	defaultSnapshotTTL = 5 * time.Minute
)

// RuleRepository loads pricing, tax, and shipping rules from Firestore and
// serves them as immutable snapshots. Snapshots are cached for a TTL so quote
// requests do not fan out into per-request reads.
type RuleRepository struct {
	provider *pfirestore.Provider
	logger   *zap.Logger
	now      func() time.Time
	ttl      time.Duration
	// loadFn performs the actual backend read; tests swap it to drive the
	// cache paths without a Firestore client.
	loadFn func(context.Context, time.Time) (domain.RuleSnapshot, error)

	mu       sync.Mutex
	snapshot *domain.RuleSnapshot
}

// RuleRepositoryOption customises the repository.
type RuleRepositoryOption func(*RuleRepository)

// WithSnapshotTTL overrides how long a cached snapshot stays fresh.
func WithSnapshotTTL(ttl time.Duration) RuleRepositoryOption {
	return func(r *RuleRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger attaches a logger for load diagnostics.
func WithLogger(logger *zap.Logger) RuleRepositoryOption {
	return func(r *RuleRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock injects a custom time source, primarily for tests.
func WithClock(now func() time.Time) RuleRepositoryOption {
	return func(r *RuleRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRuleRepository constructs a snapshot-caching rule repository.
func NewRuleRepository(provider *pfirestore.Provider, opts ...RuleRepositoryOption) (*RuleRepository, error) {
	if provider == nil {
		return nil, errors.New("rule repository requires firestore provider")
	}
	repo := &RuleRepository{
		provider: provider,
		logger:   zap.NewNop(),
		now:      time.Now,
		ttl:      defaultSnapshotTTL,
	}
	repo.loadFn = repo.load
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

var _ repositories.RuleRepository = (*RuleRepository)(nil)

// LoadSnapshot returns the cached snapshot while it is fresh and reloads from
// Firestore otherwise. When a reload fails and a stale snapshot exists, the
// stale snapshot is served so pricing stays available through backend blips.
func (r *RuleRepository) LoadSnapshot(ctx context.Context) (domain.RuleSnapshot, error) {
	if ctx == nil {
		return domain.RuleSnapshot{}, errors.New("rule repository: context is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if r.snapshot != nil && now.Sub(r.snapshot.LoadedAt) < r.ttl {
		return *r.snapshot, nil
	}

	snapshot, err := r.loadFn(ctx, now)
	if err != nil {
		if r.snapshot != nil {
			r.logger.Warn("rule snapshot reload failed, serving stale snapshot",
				zap.Error(err),
				zap.Time("loaded_at", r.snapshot.LoadedAt),
			)
			return *r.snapshot, nil
		}
		return domain.RuleSnapshot{}, fmt.Errorf("%w: %v", repositories.ErrSnapshotUnavailable, err)
	}

	r.snapshot = &snapshot
	return snapshot, nil
}

// Invalidate discards the cached snapshot so the next load hits Firestore.
func (r *RuleRepository) Invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.mu.Unlock()
}

func (r *RuleRepository) load(ctx context.Context, now time.Time) (domain.RuleSnapshot, error) {
	ctx, span := observability.StartSpan(ctx, "rules.load_snapshot")
	defer span.End()

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.RuleSnapshot{}, err
	}

	pricingRules, droppedPricing, err := r.loadPricingRules(ctx, client)
	if err != nil {
		return domain.RuleSnapshot{}, pfirestore.WrapError("rules.load_pricing", err)
	}
	taxRules, droppedTax, err := r.loadTaxRules(ctx, client)
	if err != nil {
		return domain.RuleSnapshot{}, pfirestore.WrapError("rules.load_tax", err)
	}
	zones, droppedZones, err := r.loadShippingZones(ctx, client)
	if err != nil {
		return domain.RuleSnapshot{}, pfirestore.WrapError("rules.load_shipping", err)
	}

	span.SetAttributes(
		attribute.Int("rules.pricing", len(pricingRules)),
		attribute.Int("rules.tax", len(taxRules)),
		attribute.Int("rules.shipping_zones", len(zones)),
	)

	dropped := droppedPricing + droppedTax + droppedZones
	logger := r.logger.With(
		zap.Int("pricing_rules", len(pricingRules)),
		zap.Int("tax_rules", len(taxRules)),
		zap.Int("shipping_zones", len(zones)),
	)
	if dropped > 0 {
		logger.Warn("rule snapshot loaded with malformed documents dropped", zap.Int("dropped", dropped))
	} else {
		logger.Info("rule snapshot loaded")
	}

	return domain.RuleSnapshot{
		PricingRules:  pricingRules,
		TaxRules:      taxRules,
		ShippingZones: zones,
		LoadedAt:      now,
	}, nil
}

func (r *RuleRepository) loadPricingRules(ctx context.Context, client *firestore.Client) ([]domain.PricingRule, int, error) {
	iter := client.Collection(pricingRulesCollection).Documents(ctx)
	defer iter.Stop()

	var (
		rules   []domain.PricingRule
		dropped int
	)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		var doc pricingRuleDocument
		if err := snap.DataTo(&doc); err != nil {
			dropped++
			r.logger.Warn("skipping undecodable pricing rule", zap.String("doc_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		rule := doc.toDomain(snap.Ref.ID)
		if err := rule.Validate(); err != nil {
			dropped++
			r.logger.Warn("skipping invalid pricing rule", zap.String("doc_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	return rules, dropped, nil
}

func (r *RuleRepository) loadTaxRules(ctx context.Context, client *firestore.Client) ([]domain.TaxRule, int, error) {
	iter := client.Collection(taxRulesCollection).Documents(ctx)
	defer iter.Stop()

	var (
		rules   []domain.TaxRule
		dropped int
	)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		var doc taxRuleDocument
		if err := snap.DataTo(&doc); err != nil {
			dropped++
			r.logger.Warn("skipping undecodable tax rule", zap.String("doc_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		rule := doc.toDomain(snap.Ref.ID)
		if err := rule.Validate(); err != nil {
			dropped++
			r.logger.Warn("skipping invalid tax rule", zap.String("doc_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	return rules, dropped, nil
}

func (r *RuleRepository) loadShippingZones(ctx context.Context, client *firestore.Client) ([]domain.ShippingZone, int, error) {
	iter := client.Collection(shippingZonesCollection).Documents(ctx)
	defer iter.Stop()

	var (
		zones   []domain.ShippingZone
		dropped int
	)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		var doc shippingZoneDocument
		if err := snap.DataTo(&doc); err != nil {
			dropped++
			r.logger.Warn("skipping undecodable shipping zone", zap.String("doc_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		zone, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			dropped++
			r.logger.Warn("skipping invalid shipping zone", zap.String("doc_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		zones = append(zones, zone)
	}
	return zones, dropped, nil
}
