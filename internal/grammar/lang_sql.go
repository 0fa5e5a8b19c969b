//go:build !no_sql && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/sql"

func init() {
	register(SQL, sql.GetLanguage)
}
