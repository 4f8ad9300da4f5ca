package softdelete

// ActiveFilter is conjoined with every read-style query against a registered
// entity so callers can never observe logically-deleted rows, whether or not
// they remembered to filter.
const ActiveFilter = "is_active = TRUE AND deleted_at IS NULL"

// WhereActive appends the active filter to a caller-supplied condition.
func WhereActive(cond string) string {
	if cond == "" {
		return ActiveFilter
	}
	return cond + " AND " + ActiveFilter
}
