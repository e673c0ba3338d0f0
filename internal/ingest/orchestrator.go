// Package ingest runs import profiles: one search against the profile's
// marketplace, then validation, deduplication, mapping and persistence of
// every returned item, all recorded on an ImportRun.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"okazje-ingest/internal/indexing"
	"okazje-ingest/internal/mapper"
	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
	"okazje-ingest/internal/validator"
)

var (
	ErrProfileNotFound   = errors.New("import profile not found")
	ErrProfileDisabled   = errors.New("import profile is disabled")
	ErrUnsupportedVendor = errors.New("vendor is not configured")
)

// DefaultSystemUser is recorded as importer and deal poster when a run has
// no triggering user.
const DefaultSystemUser = "system-import"

// RunRequest asks for one execution of a profile.
type RunRequest struct {
	ProfileID      string
	DryRun         bool
	TriggeredBy    models.RunTrigger
	TriggeredByUID string
}

type Options struct {
	Store   *repository.Store
	Vendors *marketplace.Registry
	Indexer indexing.Indexer
	Log     logrus.FieldLogger

	// DealsPostedBy is the author of generated deals.
	DealsPostedBy string
	StoreRawData  bool
	Now           func() time.Time
}

type Orchestrator struct {
	store         *repository.Store
	vendors       *marketplace.Registry
	indexer       indexing.Indexer
	log           logrus.FieldLogger
	dealsPostedBy string
	storeRawData  bool
	now           func() time.Time
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:         opts.Store,
		vendors:       opts.Vendors,
		indexer:       opts.Indexer,
		log:           opts.Log,
		dealsPostedBy: opts.DealsPostedBy,
		storeRawData:  opts.StoreRawData,
		now:           opts.Now,
	}
	if o.indexer == nil {
		o.indexer = indexing.Noop{}
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	if o.dealsPostedBy == "" {
		o.dealsPostedBy = DefaultSystemUser
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Run executes one import. A failed search still yields a run, finished as
// failed, and a nil error. A non-nil error means no run was recorded.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*models.ImportRun, error) {
	profile, err := o.store.Profiles.FindByID(ctx, req.ProfileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, req.ProfileID)
		}
		return nil, fmt.Errorf("load profile %s: %w", req.ProfileID, err)
	}
	if !profile.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrProfileDisabled, profile.ID)
	}
	adapter, ok := o.vendors.Get(profile.VendorID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVendor, profile.VendorID)
	}

	trigger := req.TriggeredBy
	if trigger == "" {
		trigger = models.TriggerManual
	}
	run := &models.ImportRun{
		ID:             uuid.NewString(),
		ProfileID:      profile.ID,
		VendorID:       profile.VendorID,
		Status:         models.RunStatusRunning,
		DryRun:         req.DryRun,
		StartedAt:      o.now(),
		TriggeredBy:    trigger,
		TriggeredByUID: req.TriggeredByUID,
	}
	if err := o.store.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create import run: %w", err)
	}

	log := o.log.WithFields(logrus.Fields{
		"runId":     run.ID,
		"profileId": profile.ID,
		"vendor":    profile.VendorID,
		"dryRun":    req.DryRun,
	})
	log.Info("import run started")

	params := marketplace.ParamsFromProfile(profile, adapter.MaxPageSize())
	result, err := adapter.Search(ctx, params)
	if err == nil && result != nil && result.Error != nil {
		err = result.Error
	}
	if err != nil {
		log.WithError(err).Error("vendor search failed")
		run.ErrorSummary = append(run.ErrorSummary, models.ImportError{
			Code:      models.ErrCodeUnknown,
			Message:   "vendor search failed",
			Timestamp: o.now(),
			Details:   err.Error(),
		})
		run.Stats.Errors++
		return o.finish(ctx, run, models.RunStatusFailed, log), nil
	}

	cfg := mapper.Config{
		Source:       profile.VendorID,
		Mapping:      profile.Mapping,
		ImportedBy:   importedBy(req),
		ImportRunID:  run.ID,
		StoreRawData: o.storeRawData,
		Now:          o.now,
	}
	p := &runState{run: run, profile: profile, cfg: cfg, dryRun: req.DryRun, log: log}

	var items []marketplace.Item
	if result != nil {
		items = result.Items
	}
	// A client may return more than it was asked for.
	items = items[:min(len(items), params.PageSize)]
	run.Stats.Fetched = len(items)
	for i := range items {
		item := &items[i]
		if err := o.processSafely(ctx, p, item); err != nil {
			log.WithError(err).WithField("itemId", item.ID).Warn("item failed")
			run.Stats.Errors++
			run.ErrorSummary = append(run.ErrorSummary, models.ImportError{
				Code:      models.ErrCodeUnknown,
				Message:   err.Error(),
				ItemID:    item.ID,
				Timestamp: o.now(),
			})
		}
	}

	return o.finish(ctx, run, models.RunStatusCompleted, log), nil
}

type runState struct {
	run     *models.ImportRun
	profile *models.ImportProfile
	cfg     mapper.Config
	dryRun  bool
	log     logrus.FieldLogger
}

func (o *Orchestrator) processSafely(ctx context.Context, s *runState, item *marketplace.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing item: %v", r)
		}
	}()
	return o.processItem(ctx, s, item)
}

func (o *Orchestrator) processItem(ctx context.Context, s *runState, item *marketplace.Item) error {
	stats := &s.run.Stats

	if res := validator.ValidateProduct(item, &s.profile.Filters); !res.Valid {
		stats.Skipped++
		stats.Errors++
		s.run.ErrorSummary = append(s.run.ErrorSummary, models.ImportError{
			Code:      models.ErrCodeValidation,
			Message:   res.Reason,
			ItemID:    item.ID,
			Timestamp: o.now(),
		})
		return nil
	}

	existing, err := o.store.Products.FindBySource(ctx, s.profile.VendorID, item.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("dedup lookup: %w", err)
	}

	if existing != nil {
		if s.profile.DeduplicationStrategy != models.DedupUpdate {
			stats.Skipped++
			stats.Duplicates++
			return nil
		}
		return o.update(ctx, s, existing, item)
	}
	return o.create(ctx, s, item)
}

func (o *Orchestrator) update(ctx context.Context, s *runState, existing *models.Product, item *marketplace.Item) error {
	if s.dryRun {
		s.run.Stats.WouldUpdate++
		return nil
	}
	existing.RefreshFrom(mapper.MapToProduct(item, s.cfg))
	if err := o.store.Products.Update(ctx, existing); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	s.run.Stats.Updated++
	o.queue(ctx, s.log, indexing.TypeProduct, existing.ID)
	return nil
}

func (o *Orchestrator) create(ctx context.Context, s *runState, item *marketplace.Item) error {
	product := mapper.MapToProduct(item, s.cfg)
	deal := mapper.MapToDeal(item, s.cfg, o.dealsPostedBy)
	if s.dryRun {
		s.run.Stats.WouldCreate++
		return nil
	}

	if err := o.store.Products.Create(ctx, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	s.run.Stats.Created++
	o.queue(ctx, s.log, indexing.TypeProduct, product.ID)

	if deal == nil {
		return nil
	}
	deal.ProductID = product.ID
	if err := o.store.Deals.Create(ctx, deal); err != nil {
		return fmt.Errorf("create deal: %w", err)
	}
	s.run.Stats.DealsCreated++
	o.queue(ctx, s.log, indexing.TypeDeal, deal.ID)
	return nil
}

// queue is best effort: the document is already stored.
func (o *Orchestrator) queue(ctx context.Context, log logrus.FieldLogger, kind, id string) {
	var err error
	if kind == indexing.TypeDeal {
		err = o.indexer.QueueDeal(ctx, id)
	} else {
		err = o.indexer.QueueProduct(ctx, id)
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"type": kind, "id": id}).Warn("failed to queue for indexing")
	}
}

func (o *Orchestrator) finish(ctx context.Context, run *models.ImportRun, status models.RunStatus, log logrus.FieldLogger) *models.ImportRun {
	finished := o.now()
	duration := finished.Sub(run.StartedAt).Milliseconds()
	run.Status = status
	run.FinishedAt = &finished
	run.DurationMs = &duration

	// The run record must be closed even when the caller has gone away.
	if err := o.store.Runs.Update(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Error("failed to finalize import run")
	}

	log.WithFields(logrus.Fields{
		"status":     status,
		"fetched":    run.Stats.Fetched,
		"created":    run.Stats.Created,
		"updated":    run.Stats.Updated,
		"skipped":    run.Stats.Skipped,
		"errors":     run.Stats.Errors,
		"durationMs": duration,
	}).Info("import run finished")
	return run
}

func importedBy(req RunRequest) string {
	if req.TriggeredByUID != "" {
		return req.TriggeredByUID
	}
	return DefaultSystemUser
}
