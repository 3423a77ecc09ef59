package igdb

import (
	"strconv"
	"strings"
)

// apicalypse builds the body of an IGDB request. Clauses are emitted in the
// order they are added, each terminated by a semicolon.
type apicalypse struct {
	clauses []string
}

func newQuery() *apicalypse {
	return &apicalypse{}
}

func (q *apicalypse) Search(text string) *apicalypse {
	text = strings.TrimSpace(text)
	if text == "" {
		return q
	}
	q.clauses = append(q.clauses, "search "+quote(text))
	return q
}

func (q *apicalypse) Fields(fields ...string) *apicalypse {
	if len(fields) == 0 {
		return q
	}
	q.clauses = append(q.clauses, "fields "+strings.Join(fields, ","))
	return q
}

// Where joins every non-empty condition with "&".
func (q *apicalypse) Where(conditions ...string) *apicalypse {
	parts := make([]string, 0, len(conditions))
	for _, condition := range conditions {
		if condition = strings.TrimSpace(condition); condition != "" {
			parts = append(parts, condition)
		}
	}
	if len(parts) == 0 {
		return q
	}
	q.clauses = append(q.clauses, "where "+strings.Join(parts, " & "))
	return q
}

func (q *apicalypse) Limit(limit int) *apicalypse {
	if limit <= 0 {
		return q
	}
	q.clauses = append(q.clauses, "limit "+strconv.Itoa(limit))
	return q
}

func (q *apicalypse) String() string {
	if len(q.clauses) == 0 {
		return ""
	}
	return strings.Join(q.clauses, "; ") + ";"
}

func inList(field string, values []int) string {
	if len(values) == 0 {
		return ""
	}
	items := make([]string, 0, len(values))
	for _, value := range values {
		items = append(items, strconv.Itoa(value))
	}
	return field + " = (" + strings.Join(items, ",") + ")"
}

func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
