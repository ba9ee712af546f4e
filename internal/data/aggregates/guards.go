package aggregates

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

// Guard is the compare-and-set predicate of a conditional update: the row
// must carry one of Statuses and every Equals column must hold its value.
type Guard struct {
	Statuses []string
	Equals   map[string]any
}

// CASGuard applies updates only when the guard still holds, so a stale
// reader can never overwrite a transition it did not observe.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) Update(dbc dbctx.Context, table string, id uuid.UUID, guard Guard, updates map[string]any) (bool, error) {
	if dbc.Tx == nil && g.db == nil {
		return false, types.NewError(types.CodeInternal, "cas.update", "missing db handle", nil)
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, types.NewError(types.CodeValidation, "cas.update", "table and id are required", nil)
	}
	if len(guard.Statuses) == 0 {
		return false, types.NewError(types.CodeValidation, "cas.update", "guard statuses must not be empty", nil)
	}
	q := dbc.DB(g.db).Table(table).Where("id = ? AND status IN ?", id, guard.Statuses)
	cols := make([]string, 0, len(guard.Equals))
	for col := range guard.Equals {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if v := guard.Equals[col]; v == nil {
			q = q.Where(col + " IS NULL")
		} else {
			q = q.Where(col+" = ?", v)
		}
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a coded error.
func RequireCASSuccess(ok bool, code types.ErrorCode, op, message string) error {
	if ok {
		return nil
	}
	return types.NewError(code, op, message, nil)
}
