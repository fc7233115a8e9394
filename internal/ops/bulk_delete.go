package ops

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/santa/internal/errors"
)

// BulkDeleteInput contains parameters for the BulkDelete operation.
type BulkDeleteInput struct {
	IDs []int64
}

// FailedDelete reports one removal that did not succeed.
type FailedDelete struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// BulkDeleteOutput contains the result of the BulkDelete operation.
type BulkDeleteOutput struct {
	Requested int            `json:"requested"`
	Deleted   []int64        `json:"deleted"`
	Failed    []FailedDelete `json:"failed"`
	Message   string         `json:"message"`
}

// Remover is anything that can remove a single wish by ID.
type Remover func(ctx context.Context, id int64) error

// BulkDelete issues one removal per distinct ID concurrently. Removals are
// independent: there is no ordering between them and no rollback when some
// fail, so the caller should re-read the authoritative list afterwards.
func BulkDelete(ctx context.Context, remove Remover, input BulkDeleteInput) (*BulkDeleteOutput, error) {
	ids := dedupeIDs(input.IDs)
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("ids must contain at least one id")
	}
	if len(ids) > MaxBulkDelete {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d ids can be deleted at once", MaxBulkDelete))
	}
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return nil, err
		}
	}

	var (
		mu  sync.Mutex
		out = &BulkDeleteOutput{
			Requested: len(ids),
			Deleted:   []int64{},
			Failed:    []FailedDelete{},
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkDeleteFanout)
	for _, id := range ids {
		g.Go(func() error {
			err := remove(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				se := errors.As(err)
				out.Failed = append(out.Failed, FailedDelete{ID: id, Code: string(se.Code), Error: se.Message})
				return nil
			}
			out.Deleted = append(out.Deleted, id)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out.Deleted, func(i, j int) bool { return out.Deleted[i] < out.Deleted[j] })
	sort.Slice(out.Failed, func(i, j int) bool { return out.Failed[i].ID < out.Failed[j].ID })

	out.Message = fmt.Sprintf("Deleted %d of %d wishes", len(out.Deleted), out.Requested)
	return out, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
