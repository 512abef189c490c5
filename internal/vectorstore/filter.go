package vectorstore

import (
	"fmt"
	"regexp"
)

var filterFieldPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// compileFilter turns a Filter into a SQL fragment plus its positional
// arguments, starting numbering at argOffset+1 so callers can append it
// after their own placeholders. Equality reads the JSONB field as text,
// $gte/$lte cast to numeric, $contains does a case-insensitive substring
// match (spec.md §4.5). Field names are validated against
// filterFieldPattern before being interpolated into the JSONB path
// expression, since they come from caller-supplied filter requests, not
// from parameterizable positions.
func compileFilter(f Filter, argOffset int) (string, []any, error) {
	var clauses []string
	var args []any
	next := argOffset

	fields := make([]string, 0, len(f.Equals)+len(f.Gte)+len(f.Lte)+len(f.Contains))
	for field := range f.Equals {
		fields = append(fields, field)
	}
	for field := range f.Gte {
		fields = append(fields, field)
	}
	for field := range f.Lte {
		fields = append(fields, field)
	}
	for field := range f.Contains {
		fields = append(fields, field)
	}
	for _, field := range fields {
		if !filterFieldPattern.MatchString(field) {
			return "", nil, fmt.Errorf("invalid filter field name: %q", field)
		}
	}

	for field, value := range f.Equals {
		next++
		clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = $%d", field, next))
		args = append(args, value)
	}
	for field, value := range f.Gte {
		next++
		clauses = append(clauses, fmt.Sprintf("(metadata->>'%s')::numeric >= $%d", field, next))
		args = append(args, value)
	}
	for field, value := range f.Lte {
		next++
		clauses = append(clauses, fmt.Sprintf("(metadata->>'%s')::numeric <= $%d", field, next))
		args = append(args, value)
	}
	for field, value := range f.Contains {
		next++
		clauses = append(clauses, fmt.Sprintf("metadata->>'%s' ILIKE $%d", field, next))
		args = append(args, "%"+value+"%")
	}
	for _, sub := range f.And {
		clause, subArgs, err := compileFilter(sub, next)
		if err != nil {
			return "", nil, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, "("+clause+")")
		args = append(args, subArgs...)
		next += len(subArgs)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	sql := clauses[0]
	for _, c := range clauses[1:] {
		sql += " AND " + c
	}
	return sql, args, nil
}
