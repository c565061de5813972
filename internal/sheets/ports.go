package sheets

import (
	"context"

	"piggybank/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportWriter mirrors piggy banks to the savings report. Upsert must be
	// idempotent per piggy-bank id so replayed queue messages converge on the
	// same row.
	ReportWriter interface {
		Upsert(ctx context.Context, p core.PiggyBank) (rowRef string, err error)
	}

	// ReportRemover drops a piggy bank from the savings report after it has
	// been deleted from storage.
	ReportRemover interface {
		Remove(ctx context.Context, id int64) error
	}
)
