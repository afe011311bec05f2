package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByCreatedAt = "created_at"
	orderByDuration  = "duration"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByCreatedAt: "created_at DESC",
	orderByDuration:  "duration_seconds DESC",
}

const defaultOrderBy = "created_at DESC"

const baseActivitiesSelect = `SELECT id, marketplace_id, activity_type, date_from, date_to,
	action, status, orders_fetched, items_fetched, duration_seconds,
	COALESCE(detail, ''), COALESCE(error_message, ''), database_saved,
	created_at, updated_at
FROM activities`

const countActivitiesSelect = "SELECT COUNT(*) FROM activities"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for an
// activity query. It returns two SQL strings (one for the data query, one
// for the count query) and the positional parameters.
func (q *ActivityQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.MarketplaceID != nil {
		conditions = append(conditions, fmt.Sprintf("marketplace_id = $%d", paramIdx))
		args = append(args, *q.MarketplaceID)
		paramIdx++
	}

	if q.Type != nil {
		conditions = append(conditions, fmt.Sprintf("activity_type = $%d", paramIdx))
		args = append(args, *q.Type)
		paramIdx++
	}

	if q.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", paramIdx))
		args = append(args, *q.Status)
		paramIdx++
	}

	if q.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", paramIdx))
		args = append(args, *q.Since)
		paramIdx++
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Order by
	orderClause := defaultOrderBy
	if q.OrderBy != "" {
		if col, ok := validOrderBy[q.OrderBy]; ok {
			orderClause = col
		}
	}

	// Limit
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseActivitiesSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countActivitiesSelect + whereClause

	return dataSQL, countSQL, args
}
