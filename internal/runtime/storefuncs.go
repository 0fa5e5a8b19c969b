package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/risor-io/risor/object"

	"github.com/jward/treebridge"
	"github.com/jward/treebridge/internal/store"
)

// makeStoreTreeFn persists a tree's pre-walk and canned-query captures.
//
// store_tree(path, tree, source) → tree id
func makeStoreTreeFn(b *treebridge.Bridge, s *store.Store) *object.Builtin {
	return object.NewBuiltin("store_tree", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("store_tree", 3, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return argError("store_tree", "path: %v", err)
		}
		t, argErr := toTree("store_tree", args[1])
		if argErr != nil {
			return argErr
		}
		src, err := toBytes(args[2])
		if err != nil {
			return argError("store_tree", "source: %v", err)
		}

		batch, err := store.Collect(ctx, b, path, t, src)
		if err != nil {
			return hostError("store_tree", err)
		}
		ids, err := s.CommitBatch(batch)
		if err != nil {
			return hostError("store_tree", err)
		}
		return object.NewInt(ids[0])
	})
}

// makeDBQueryFn runs read-only SQL against the snapshot store.
//
// db_query(sql, args...) → list of maps keyed by column name
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return argError("db_query", "expected at least 1 argument (sql), got 0")
		}
		query, err := toString(args[0])
		if err != nil {
			return argError("db_query", "sql: %v", err)
		}
		if !readOnly(query) {
			return argError("db_query", "only SELECT and WITH queries are allowed")
		}

		rows, err := s.ReadOnlyDB().QueryContext(ctx, query, sqlArgs(args[1:])...)
		if err != nil {
			return hostError("db_query", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return hostError("db_query", err)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return hostError("db_query", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return hostError("db_query", err)
		}
		return object.NewList(results)
	})
}

// readOnly screens statement text so plain writes get a clear message. The
// read-only connection refuses any write that gets past it.
func readOnly(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "WITH")
}

func sqlArgs(args []object.Object) []any {
	out := make([]any, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case *object.Int:
			out = append(out, v.Value())
		case *object.Float:
			out = append(out, v.Value())
		case *object.String:
			out = append(out, v.Value())
		case *object.Bool:
			out = append(out, v.Value())
		case *object.NilType:
			out = append(out, nil)
		default:
			out = append(out, arg.Inspect())
		}
	}
	return out
}

// sqlValueToObject converts a scanned column value to a Risor object.
func sqlValueToObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	case time.Time:
		return object.NewString(val.Format(time.RFC3339))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
