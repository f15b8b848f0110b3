package columns

import "regexp"

// dbt model SQL arrives with Jinja templating. We do not evaluate templates;
// refs and sources collapse to plain relation names so the SQL parses, and
// everything else is removed.
var (
	jinjaComment = regexp.MustCompile(`(?s)\{#.*?#\}`)
	jinjaConfig  = regexp.MustCompile(`(?s)\{\{\s*config\s*\([^)]*\)\s*\}\}`)
	jinjaRef     = regexp.MustCompile(`\{\{\s*ref\s*\(([^)]+)\)\s*\}\}`)
	jinjaSource  = regexp.MustCompile(`\{\{\s*source\s*\(([^)]+)\)\s*\}\}`)
	jinjaExpr    = regexp.MustCompile(`\{\{[^}]*\}\}`)
	jinjaBlock   = regexp.MustCompile(`(?s)\{%.*?%\}`)
	stringArg    = regexp.MustCompile(`["']([^"']+)["']`)
)

// StripJinja removes Jinja templating from model SQL.
//
//	{{ ref('orders') }}          -> orders
//	{{ source('raw', 'users') }} -> raw__users
//	{{ config(...) }}            -> removed
//	{# comment #}, {% ... %}     -> removed
//	remaining {{ ... }}          -> removed
func StripJinja(sql string) string {
	sql = jinjaComment.ReplaceAllString(sql, "")
	sql = jinjaConfig.ReplaceAllString(sql, "")

	sql = jinjaRef.ReplaceAllStringFunc(sql, func(m string) string {
		args := stringArg.FindAllStringSubmatch(jinjaRef.FindStringSubmatch(m)[1], -1)
		if len(args) > 0 {
			return args[0][1]
		}
		return "unknown_ref"
	})

	sql = jinjaSource.ReplaceAllStringFunc(sql, func(m string) string {
		args := stringArg.FindAllStringSubmatch(jinjaSource.FindStringSubmatch(m)[1], -1)
		if len(args) >= 2 {
			return args[0][1] + "__" + args[1][1]
		}
		if len(args) == 1 {
			return args[0][1]
		}
		return "unknown_source"
	})

	sql = jinjaBlock.ReplaceAllString(sql, "")
	sql = jinjaExpr.ReplaceAllString(sql, "")

	return sql
}
