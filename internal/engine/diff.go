// Package engine implements the synchronization core: the diff that
// classifies a freshly mapped batch against the last committed snapshot, and
// the orchestrator that drives the pull, map, diff, apply and commit phases.
package engine

import (
	"sort"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// Change pairs one item (or, for deletes, just its external ID) with the
// action the diff decided.
type Change struct {
	// Item is nil for deletes; the remote record is gone, only the ID
	// survives in the snapshot.
	Item   *domain.CanonicalItem
	ChmsID string
	Action domain.SyncAction
	// Hash is the current content hash for creates/updates/unchanged,
	// computed once here so apply and commit never re-hash.
	Hash string
}

// Diff classifies each item of the current batch as create, update, or
// unchanged against the previous snapshot, then emits a delete for every
// previously tracked ID that disappeared. Creates and updates keep the
// input batch order so downstream side effects (media downloads in
// particular) proceed predictably; deletes come after all of them.
func Diff(batch []*domain.CanonicalItem, previous map[string]string, hash func(*domain.CanonicalItem) string) []Change {
	changes := make([]Change, 0, len(batch))
	seen := make(map[string]bool, len(batch))

	for _, item := range batch {
		h := hash(item)
		seen[item.ChmsID] = true

		prev, tracked := previous[item.ChmsID]
		action := domain.ActionCreate
		if tracked {
			if prev == h {
				action = domain.ActionUnchanged
			} else {
				action = domain.ActionUpdate
			}
		}
		changes = append(changes, Change{Item: item, ChmsID: item.ChmsID, Action: action, Hash: h})
	}

	var gone []string
	for id := range previous {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		changes = append(changes, Change{ChmsID: id, Action: domain.ActionDelete})
	}

	return changes
}
