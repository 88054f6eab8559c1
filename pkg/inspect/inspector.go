// Package inspect locates SAS accounts, fetches their bytes and decodes them
// into reports. It sits between the ledger, the local store, the record codec
// and the report publisher.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/ledger"
	"github.com/ssargent/sasinspect/pkg/notify"
	"github.com/ssargent/sasinspect/pkg/scan"
	"github.com/ssargent/sasinspect/pkg/storage"
)

// ErrNoLedger is returned by operations that need a ledger when none is configured
var ErrNoLedger = errors.New("no ledger configured")

// ErrNoStorage is returned by report lookups when no store is configured
var ErrNoStorage = errors.New("no report storage configured")

// Config wires an Inspector. Only Program is required; a nil Ledger limits
// the inspector to offline decoding, a nil Storage disables the cache and
// report persistence, and a nil Publisher disables publishing.
type Config struct {
	Ledger      ledger.Ledger
	Storage     storage.Storage
	Publisher   notify.Publisher
	Codec       *codec.RecordCodec
	Program     codec.Identifier
	Concurrency int
	Logger      *zap.SugaredLogger
	Metrics     *Metrics

	// CacheTTL is how long a cached account is served before it is fetched
	// again. Zero keeps cached accounts forever.
	CacheTTL time.Duration
}

// Options adjust a single inspection
type Options struct {
	// SkipCache fetches from the ledger even when the account is cached
	SkipCache bool

	// All inspects every account created for the program in a block
	// instead of only the first one
	All bool
}

type Inspector struct {
	ledger      ledger.Ledger
	store       storage.Storage
	publisher   notify.Publisher
	pubMu       sync.Mutex
	codec       *codec.RecordCodec
	program     codec.Identifier
	concurrency int
	cacheTTL    time.Duration
	logger      *zap.SugaredLogger
	metrics     *Metrics
}

// origin is the block context of an account found by a scan
type origin struct {
	slot      uint64
	signature string
}

func New(cfg Config) (*Inspector, error) {
	if cfg.Program.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.NewRecordCodec()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = notify.Nop{}
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must not be negative")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Inspector{
		ledger:      cfg.Ledger,
		store:       cfg.Storage,
		publisher:   cfg.Publisher,
		codec:       cfg.Codec,
		program:     cfg.Program,
		concurrency: cfg.Concurrency,
		cacheTTL:    cfg.CacheTTL,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}, nil
}

// Decode classifies raw account bytes without touching the ledger, the
// store or the publisher
func (i *Inspector) Decode(data []byte) (*Report, error) {
	return i.DecodeWith(i.codec, data)
}

// DecodeWith is Decode using rc instead of the configured codec
func (i *Inspector) DecodeWith(rc *codec.RecordCodec, data []byte) (*Report, error) {
	r, err := newReport(rc, data, SourceInput)
	i.observe(r, err)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// InspectAccount fetches one account (from the cache when allowed), decodes
// it, then stores and publishes the report
func (i *Inspector) InspectAccount(ctx context.Context, address codec.Identifier, opts Options) (*Report, error) {
	return i.inspectAccount(ctx, address, opts, nil)
}

func (i *Inspector) inspectAccount(ctx context.Context, address codec.Identifier, opts Options, from *origin) (*Report, error) {
	acct, source, err := i.fetch(ctx, address, opts.SkipCache)
	if err != nil {
		return nil, err
	}

	r, err := newReport(i.codec, acct.Data, source)
	i.observe(r, err)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", address, err)
	}

	addr, owner := acct.Address, acct.Owner
	r.Address = &addr
	r.Owner = &owner
	if from != nil {
		r.Slot = from.slot
		r.Signature = from.signature
	}
	if owner != i.program {
		i.logger.Warnw("account is not owned by the program",
			"address", address,
			"owner", owner,
			"program", i.program)
	}

	if err := i.finish(r); err != nil {
		return nil, err
	}
	return r, nil
}

// InspectAccounts inspects several accounts concurrently. Reports are
// returned in the order of addresses; the first failure cancels the rest.
func (i *Inspector) InspectAccounts(ctx context.Context, addresses []codec.Identifier, opts Options) ([]*Report, error) {
	return i.inspectEach(ctx, len(addresses), func(ctx context.Context, idx int) (*Report, error) {
		return i.inspectAccount(ctx, addresses[idx], opts, nil)
	})
}

// inspectEach calls one for 0..n-1 with bounded concurrency and keeps the
// reports in index order
func (i *Inspector) inspectEach(ctx context.Context, n int, one func(context.Context, int) (*Report, error)) ([]*Report, error) {
	reports := make([]*Report, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx := 0; idx < n; idx++ {
		idx := idx
		g.Go(func() error {
			r, err := one(ctx, idx)
			if err != nil {
				return err
			}
			reports[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// InspectBlock finds the accounts the block created for the program and
// inspects them. Without opts.All only the first match is used.
func (i *Inspector) InspectBlock(ctx context.Context, block *scan.Block, opts Options) ([]*Report, error) {
	matches, err := scan.FindCreatedAccounts(block, i.program)
	if err != nil {
		return nil, err
	}
	i.metrics.blockMatches(len(matches))
	if len(matches) == 0 {
		return nil, fmt.Errorf("slot %d: %w", block.Slot, scan.ErrNoMatch)
	}

	if !opts.All {
		if len(matches) > 1 {
			i.logger.Warnw("block created several program accounts, using the first",
				"slot", block.Slot,
				"matches", len(matches),
				"address", matches[0].Address)
		}
		matches = matches[:1]
	}

	return i.inspectEach(ctx, len(matches), func(ctx context.Context, idx int) (*Report, error) {
		m := matches[idx]
		return i.inspectAccount(ctx, m.Address, opts, &origin{slot: block.Slot, signature: m.Signature})
	})
}

// InspectSlot fetches the block at slot and inspects it
func (i *Inspector) InspectSlot(ctx context.Context, slot uint64, opts Options) ([]*Report, error) {
	if i.ledger == nil {
		return nil, ErrNoLedger
	}

	block, err := i.ledger.GetBlock(ctx, slot)
	if err != nil {
		i.metrics.ledgerError("getBlock")
		return nil, err
	}
	return i.InspectBlock(ctx, block, opts)
}

// Report loads a stored report
func (i *Inspector) Report(id ksuid.KSUID) (*Report, error) {
	if i.store == nil {
		return nil, ErrNoStorage
	}
	data, err := i.store.ReadReport(id)
	if err != nil {
		return nil, err
	}
	return UnmarshalReport(data)
}

// Reports lists stored report IDs, newest first
func (i *Inspector) Reports(limit int) ([]ksuid.KSUID, error) {
	if i.store == nil {
		return nil, ErrNoStorage
	}
	return i.store.ListReports(limit)
}

func (i *Inspector) fetch(ctx context.Context, address codec.Identifier, skipCache bool) (*storage.CachedAccount, string, error) {
	if i.store != nil && !skipCache {
		acct, err := i.store.GetAccount(address)
		switch {
		case err == nil && i.expired(acct):
			i.metrics.cacheLookup(false)
			i.logger.Debugw("cached account expired",
				"address", address,
				"fetched_at", acct.FetchedAt)
		case err == nil:
			i.metrics.cacheLookup(true)
			return acct, SourceCache, nil
		case errors.Is(err, storage.ErrNotFound):
			i.metrics.cacheLookup(false)
		default:
			i.logger.Warnw("account cache read failed", "address", address, "error", err)
		}
	}

	if i.ledger == nil {
		return nil, "", ErrNoLedger
	}

	info, err := i.ledger.GetAccountInfo(ctx, address)
	if err != nil {
		i.metrics.ledgerError("getAccountInfo")
		return nil, "", err
	}

	acct := &storage.CachedAccount{
		Address:  address,
		Owner:    info.Owner,
		Lamports: info.Lamports,
		Data:     info.Data,
	}
	if i.store != nil {
		if err := i.store.PutAccount(*acct); err != nil {
			i.logger.Warnw("account cache write failed", "address", address, "error", err)
		}
	}
	return acct, SourceLedger, nil
}

func (i *Inspector) expired(acct *storage.CachedAccount) bool {
	return i.cacheTTL > 0 && time.Since(acct.FetchedAt) > i.cacheTTL
}

// finish stores the report, then publishes it. Publishing is best effort.
func (i *Inspector) finish(r *Report) error {
	r.ID = ksuid.New()

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if i.store != nil {
		if err := i.store.SaveReport(r.ID, body); err != nil {
			return fmt.Errorf("failed to store report: %w", err)
		}
	}

	if err := i.publish(body); err != nil {
		i.metrics.publishFailed()
		i.logger.Warnw("report publish failed", "id", r.ID, "error", err)
	}

	i.logger.Infow("account inspected",
		"id", r.ID,
		"address", r.Address,
		"kind", r.Kind,
		"source", r.Source)
	return nil
}

// publish serialises access to the publisher; AMQP channels are not safe
// for concurrent use
func (i *Inspector) publish(body []byte) error {
	i.pubMu.Lock()
	defer i.pubMu.Unlock()
	return i.publisher.Publish(body, notify.ContentTypeJSON)
}

func (i *Inspector) observe(r *Report, err error) {
	switch {
	case err != nil:
		i.metrics.recordOutcome("none", outcomeMalformed)
	case r.Recognized:
		i.metrics.recordOutcome(r.Kind, outcomeDecoded)
	default:
		i.metrics.recordOutcome("unknown", outcomeUnrecognized)
	}
}
