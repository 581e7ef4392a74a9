// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildValues renders a multi-row VALUES fragment with positional
// placeholders and returns it together with the flattened argument list.
//
// For R rows of C columns it produces R comma-joined parenthesized groups of
// C placeholders, numbered contiguously row-major starting at start:
//
//	($1,$2,$3),($4,$5,$6)
//
// casts optionally appends a SQL type cast per column ("int" -> $2::int);
// an empty string leaves the column uncast. Pass nil for no casts.
//
// The builder owns flattening so callers cannot desynchronize the
// placeholder count from the argument count. Ragged rows or a casts slice
// whose length differs from the column count indicate a caller bug and are
// rejected with an error.
func BuildValues(rows [][]any, casts []string, start int) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("values fragment requires at least one row")
	}
	if start < 1 {
		return "", nil, fmt.Errorf("placeholder numbering starts at 1, got %d", start)
	}

	cols := len(rows[0])
	if cols == 0 {
		return "", nil, fmt.Errorf("values fragment requires at least one column")
	}
	if casts != nil && len(casts) != cols {
		return "", nil, fmt.Errorf("cast list has %d entries for %d columns", len(casts), cols)
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*cols)
	n := start

	for i, row := range rows {
		if len(row) != cols {
			return "", nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}

		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			if casts != nil && casts[j] != "" {
				sb.WriteString("::")
				sb.WriteString(casts[j])
			}
			n++
			args = append(args, v)
		}
		sb.WriteByte(')')
	}

	return sb.String(), args, nil
}
