// Package mirror defines the outbound port for mirroring confirmed expenses
// to an external sheet.
package mirror

import (
	"context"

	"submanager/internal/core"
)

// RowAppender appends one row per confirmed expense and returns an opaque
// reference to the written row.
type RowAppender interface {
	AppendExpense(ctx context.Context, e core.VariableExpense) (rowRef string, err error)
}
