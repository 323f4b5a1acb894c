package contractor

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// ReconcileReport summarizes a reconciliation pass. RecordsUpdated
// counts surviving records that absorbed at least one field, not the
// individual columns filled.
type ReconcileReport struct {
	Scanned        int `json:"scanned"`
	Groups         int `json:"duplicate_groups"`
	Removed        int `json:"removed"`
	RecordsUpdated int `json:"records_updated"`
}

// Reconciler collapses duplicates that accumulated in the store.
// Records are grouped by normalized phone, then phoneless records by
// email. The oldest record in each group survives and absorbs any
// fields it was missing.
type Reconciler struct {
	store store.Store
	coord *store.Coordinator
	log   *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(st store.Store, coord *store.Coordinator) *Reconciler {
	return &Reconciler{
		store: st,
		coord: coord,
		log:   zap.L().With(zap.String("component", "reconciler")),
	}
}

// Reconcile runs one full pass. It holds the coordinator lock for the
// duration so no ingestion can interleave with the scan and delete.
// Running it twice in a row is a no-op the second time.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	err := r.coord.Write(func() error {
		all, err := r.store.AllContractors(ctx)
		if err != nil {
			return err
		}
		report.Scanned = len(all)

		byPhone := map[string][]*model.Contractor{}
		var phoneless []*model.Contractor
		for i := range all {
			c := &all[i]
			phone := normalize.Phone(c.Phone)
			if len(phone) >= normalize.MinPhoneDigits {
				byPhone[phone] = append(byPhone[phone], c)
			} else {
				phoneless = append(phoneless, c)
			}
		}

		byEmail := map[string][]*model.Contractor{}
		for _, c := range phoneless {
			if email := normalize.Email(c.Email); email != "" {
				byEmail[email] = append(byEmail[email], c)
			}
		}

		var merges []store.ReconcileMerge
		var doomed []int64
		for _, group := range byPhone {
			merges, doomed = collapseGroup(group, merges, doomed, report)
		}
		for _, group := range byEmail {
			merges, doomed = collapseGroup(group, merges, doomed, report)
		}

		// All merges and deletions commit together; a crash mid-pass
		// leaves the store untouched.
		n, err := r.store.ApplyReconciliation(ctx, merges, doomed)
		if err != nil {
			return err
		}
		report.Removed = n
		report.RecordsUpdated = len(merges)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "contractor: reconcile")
	}

	r.log.Info("reconciliation complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("groups", report.Groups),
		zap.Int("removed", report.Removed),
		zap.Int("records_updated", report.RecordsUpdated))
	return report, nil
}

// collapseGroup plans the fold of a duplicate group into its oldest
// member. The store returns records in ascending id order, so group[0]
// is the survivor.
func collapseGroup(group []*model.Contractor, merges []store.ReconcileMerge, doomed []int64, report *ReconcileReport) ([]store.ReconcileMerge, []int64) {
	if len(group) < 2 {
		return merges, doomed
	}
	report.Groups++

	primary := group[0]
	updates := map[string]string{}
	for _, dup := range group[1:] {
		for col, val := range MergeMissing(primary, dup) {
			if _, taken := updates[col]; !taken {
				updates[col] = val
			}
		}
		doomed = append(doomed, dup.ID)
	}

	if len(updates) > 0 {
		merges = append(merges, store.ReconcileMerge{ID: primary.ID, Updates: updates})
	}
	return merges, doomed
}
