package aggregates

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

// CASGuard performs compare-and-set writes keyed on an entity's state column.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return dbc.Resolve(g.db), nil
}

// UpdateByState applies updates only while the row's state is one of
// expected. It reports whether a row changed.
func (g CASGuard) UpdateByState(dbc dbctx.Context, table string, id uuid.UUID, expected []string, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByState")
	}
	if len(expected) == 0 {
		return false, ValidationError("expected states must not be empty")
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := db.Table(table).
		Where("id = ? AND state IN ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess turns a lost compare-and-set into a conflict.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(message)
}

// RequireStateAllowed fails with a precondition error unless current is one of allowed.
func RequireStateAllowed(current string, allowed ...string) error {
	if len(allowed) == 0 {
		return ValidationError("allowed states cannot be empty")
	}
	current = strings.TrimSpace(current)
	for _, s := range allowed {
		if strings.EqualFold(current, strings.TrimSpace(s)) {
			return nil
		}
	}
	return PreconditionError("state " + current + " not in " + strings.Join(allowed, ","))
}
