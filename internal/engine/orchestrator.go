package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cpconnect/chms-sync/internal/customfields"
	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/mapping"
	"github.com/cpconnect/chms-sync/internal/pkg/logger"
	"github.com/cpconnect/chms-sync/internal/snapshot"
)

// Puller pulls raw records for a content type. Vendor auth, pagination, and
// filtering live entirely behind this interface.
type Puller interface {
	Pull(ctx context.Context, ct domain.ContentType) ([]domain.RawRecord, error)
}

// Sink applies canonical items to the host CMS. Upsert must be idempotent on
// the ChMS ID; Remove also cleans up any owned media attachment.
type Sink interface {
	Upsert(ctx context.Context, ct domain.ContentType, item *domain.CanonicalItem) (string, error)
	Remove(ctx context.Context, ct domain.ContentType, chmsID string) error
}

// OptionsStore persists the custom-field option sets accumulated during a
// pass, saved once per run rather than per item.
type OptionsStore interface {
	SaveCustomFieldOptions(ctx context.Context, ct domain.ContentType, options map[string][]string) error
}

// ContentTypeConfig is the admin configuration for one content type, read at
// run start and immutable for the duration of the run.
type ContentTypeConfig struct {
	FieldMapping mapping.FieldMapping
	CustomFields []customfields.Mapping
	Defaults     map[string]interface{}
}

// RunOptions tunes a single run.
type RunOptions struct {
	// ForceFullResync salts every diff hash with the run ID so all items
	// re-apply. The committed snapshot is still computed unsalted.
	ForceFullResync bool
}

// Orchestrator drives the pull, map, diff, apply and commit phases for each
// registered content type. It does not retry a failed run; the next
// scheduled trigger is the retry. Callers are responsible for single-flight
// locking per content type (see the worker package).
type Orchestrator struct {
	chms      Puller
	sink      Sink
	snapshots snapshot.Store
	options   OptionsStore
	configs   map[domain.ContentType]ContentTypeConfig
}

// NewOrchestrator wires the sync core to its collaborators.
func NewOrchestrator(
	chms Puller,
	sink Sink,
	snapshots snapshot.Store,
	options OptionsStore,
	configs map[domain.ContentType]ContentTypeConfig,
) *Orchestrator {
	return &Orchestrator{
		chms:      chms,
		sink:      sink,
		snapshots: snapshots,
		options:   options,
		configs:   configs,
	}
}

// ContentTypes returns the content types this orchestrator is configured for.
func (o *Orchestrator) ContentTypes() []domain.ContentType {
	out := make([]domain.ContentType, 0, len(o.configs))
	for _, ct := range domain.AllContentTypes {
		if _, ok := o.configs[ct]; ok {
			out = append(out, ct)
		}
	}
	return out
}

// Run executes one full sync pass for a content type. The returned report is
// always non-nil; a non-nil error means the run failed at the run level
// (pull failure, empty-batch guard, commit failure) and the snapshot was
// left untouched except for a successful commit.
func (o *Orchestrator) Run(ctx context.Context, ct domain.ContentType, opts RunOptions) (*domain.RunReport, error) {
	report := domain.NewRunReport(ct)
	report.Forced = opts.ForceFullResync

	cfg, ok := o.configs[ct]
	if !ok {
		return o.fail(report, fmt.Errorf("content type %q is not configured", ct))
	}

	logger.Info("sync run starting", "run_id", report.ID.String(), "content_type", ct, "forced", opts.ForceFullResync)

	// Pulling: any upstream failure aborts before state is touched.
	report.Status = domain.RunPulling
	raw, err := o.chms.Pull(ctx, ct)
	if err != nil {
		return o.fail(report, &PullError{Err: err})
	}

	// Mapping: per-record failures are counted, never fatal to the batch.
	report.Status = domain.RunMapping
	registry := customfields.NewRegistry(ct, cfg.CustomFields)
	batch := make([]*domain.CanonicalItem, 0, len(raw))
	for _, record := range raw {
		item, err := mapping.Map(record, cfg.FieldMapping, cfg.Defaults)
		if err != nil {
			logger.Warn("record skipped", "content_type", ct, "error", err.Error())
			report.Record(domain.ItemResult{Error: err.Error()})
			continue
		}
		for slug, value := range registry.Observe(record) {
			item.Fields[slug] = value
		}
		batch = append(batch, item)
	}

	previous, err := o.snapshots.Load(ctx, ct)
	if err != nil {
		return o.fail(report, fmt.Errorf("load snapshot: %w", err))
	}

	// An empty batch against a non-empty snapshot is indistinguishable from
	// an upstream outage; refuse to diff rather than delete everything.
	if len(batch) == 0 && len(previous) > 0 {
		return o.fail(report, ErrEmptyBatch)
	}

	report.Status = domain.RunDiffing
	hashFn := snapshot.Hash
	if opts.ForceFullResync {
		salt := report.ID.String()
		hashFn = func(item *domain.CanonicalItem) string {
			return snapshot.HashWithSalt(item, salt)
		}
	}
	changes := Diff(batch, previous, hashFn)

	// Applying: one bad item must not abort the batch. Items whose apply
	// fails are left out of the committed snapshot so the next run retries
	// them as creates.
	report.Status = domain.RunApplying
	commit := make(map[string]string, len(batch))
	for _, change := range changes {
		select {
		case <-ctx.Done():
			return o.fail(report, ctx.Err())
		default:
		}

		switch change.Action {
		case domain.ActionCreate, domain.ActionUpdate:
			if _, err := o.sink.Upsert(ctx, ct, change.Item); err != nil {
				serr := &SinkError{ChmsID: change.ChmsID, Err: err}
				logger.Error("upsert failed", "content_type", ct, "chms_id", change.ChmsID, "error", err.Error())
				report.Record(domain.ItemResult{ChmsID: change.ChmsID, Action: change.Action, Error: serr.Error()})
				continue
			}
			report.Record(domain.ItemResult{ChmsID: change.ChmsID, Action: change.Action})
			commit[change.ChmsID] = o.commitHash(change, opts)
		case domain.ActionUnchanged:
			report.Record(domain.ItemResult{ChmsID: change.ChmsID, Action: change.Action})
			commit[change.ChmsID] = o.commitHash(change, opts)
		case domain.ActionDelete:
			if err := o.sink.Remove(ctx, ct, change.ChmsID); err != nil {
				serr := &SinkError{ChmsID: change.ChmsID, Err: err}
				logger.Error("remove failed", "content_type", ct, "chms_id", change.ChmsID, "error", err.Error())
				report.Record(domain.ItemResult{ChmsID: change.ChmsID, Action: change.Action, Error: serr.Error()})
				continue
			}
			report.Record(domain.ItemResult{ChmsID: change.ChmsID, Action: change.Action})
		}
	}

	// Committing: the snapshot is replaced wholesale, only after every apply
	// has been attempted.
	report.Status = domain.RunCommitting
	if err := o.snapshots.Replace(ctx, ct, commit); err != nil {
		return o.fail(report, fmt.Errorf("commit snapshot: %w", err))
	}

	if o.options != nil {
		if err := o.options.SaveCustomFieldOptions(ctx, ct, registry.Options()); err != nil {
			// Filter options are a UI convenience; a failed save must not
			// invalidate an otherwise committed run.
			logger.Warn("custom field options not saved", "content_type", ct, "error", err.Error())
		}
	}

	report.Status = domain.RunCompleted
	report.FinishedAt = time.Now().UTC()
	logger.Info("sync run completed",
		"run_id", report.ID.String(), "content_type", ct,
		"created", report.Created, "updated", report.Updated,
		"unchanged", report.Unchanged, "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}

// commitHash returns the unsalted hash for the snapshot. During a forced run
// the diff hashes carry the run salt, which must never be persisted.
func (o *Orchestrator) commitHash(change Change, opts RunOptions) string {
	if opts.ForceFullResync {
		return snapshot.Hash(change.Item)
	}
	return change.Hash
}

func (o *Orchestrator) fail(report *domain.RunReport, err error) (*domain.RunReport, error) {
	report.Status = domain.RunFailed
	report.Error = err.Error()
	report.FinishedAt = time.Now().UTC()
	logger.Error("sync run failed", "run_id", report.ID.String(), "content_type", report.ContentType, "error", err.Error())
	return report, err
}
