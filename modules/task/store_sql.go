package task

import (
	"strings"

	domain "github.com/example/kanban-tasks/domain/task"
)

var sortColumns = map[domain.SortField]string{
	domain.SortByID:        "id",
	domain.SortByTitle:     "title",
	domain.SortByStatus:    "CASE status WHEN 'TODO' THEN 0 WHEN 'IN_PROGRESS' THEN 1 WHEN 'DONE' THEN 2 ELSE 3 END",
	domain.SortByPriority:  "CASE priority WHEN 'LOW' THEN 0 WHEN 'MED' THEN 1 WHEN 'HIGH' THEN 2 ELSE 3 END",
	domain.SortByCreatedAt: "created_at",
	domain.SortByUpdatedAt: "updated_at",
	domain.SortByVersion:   "version",
}

// orderClause renders s as an ORDER BY list with an id tiebreak, matching Sort.Less.
func orderClause(s domain.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = sortColumns[domain.DefaultSort.Field]
		s = domain.DefaultSort
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if s.Field == domain.SortByID {
		return col + " " + dir
	}
	return col + " " + dir + ", id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern for a substring match.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
