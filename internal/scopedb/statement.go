package scopedb

import (
	"regexp"
	"strings"

	"github.com/sellerdesk/backend/internal/apperr"
)

// TenantColumn is the column every tenant-owned table carries, and TenantParam the named
// parameter it must be compared against. Statements are written as `org_id = @org_id`.
const (
	TenantColumn = "org_id"
	TenantParam  = "org_id"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)
	dollarTag    = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)?\$`)
	quotedIdent  = regexp.MustCompile(`"([^"]*)"`)
	spaces       = regexp.MustCompile(`\s+`)
	spacedEquals = regexp.MustCompile(`\s*=\s*`)
	anyCaseParam = regexp.MustCompile(`(?i)@` + TenantParam + `\b`)
	whereWord    = regexp.MustCompile(`\bwhere\b`)
	filterToken  = regexp.MustCompile(`(^|[^a-z0-9_])` + TenantColumn + `=@` + TenantParam + `\b`)
	insertCols   = regexp.MustCompile(`^insert into [a-z0-9_.]+ ?\(([^)]*)\)`)
)

// strip removes comments and string literals, dollar-quoted ones included, so neither can
// satisfy the filter check.
func strip(sql string) string {
	s := stripDollarQuoted(sql)
	s = blockComment.ReplaceAllString(s, " ")
	s = lineComment.ReplaceAllString(s, " ")
	s = stringLit.ReplaceAllString(s, "''")
	s = quotedIdent.ReplaceAllString(s, "$1")
	return s
}

// stripDollarQuoted replaces each $tag$...$tag$ literal with ''. An unterminated literal
// swallows the rest of the statement. Positional placeholders such as $1 never open a tag.
func stripDollarQuoted(sql string) string {
	var b strings.Builder
	s := sql
	for {
		loc := dollarTag.FindStringIndex(s)
		if loc == nil {
			b.WriteString(s)
			return b.String()
		}
		// '$' inside an identifier such as a$b$ does not open a literal
		if loc[0] > 0 && isIdentByte(s[loc[0]-1]) {
			b.WriteString(s[:loc[0]+1])
			s = s[loc[0]+1:]
			continue
		}
		tag := s[loc[0]:loc[1]]
		b.WriteString(s[:loc[0]])
		b.WriteString("''")
		end := strings.Index(s[loc[1]:], tag)
		if end < 0 {
			return b.String()
		}
		s = s[loc[1]+end+len(tag):]
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// normalize lowercases, strips and collapses whitespace, including around '='.
func normalize(sql string) string {
	s := strings.ToLower(strip(sql))
	s = spaces.ReplaceAllString(s, " ")
	s = spacedEquals.ReplaceAllString(s, "=")
	return strings.TrimSpace(s)
}

// CheckStatement reports whether sql carries the tenant filter in its predicate region.
// The check is textual and statement-wide. It can be defeated by obfuscated statements
// such as `org_id = @org_id OR true`. It also accepts a filter that sits only in a nested
// subquery (`WHERE id IN (SELECT id FROM t2 WHERE org_id = @org_id)`) or in one branch of a
// UNION. Code review and the scope auditor cover those shapes.
// On failure it returns the violation kind.
func CheckStatement(sql string) (string, bool) {
	stripped := strip(sql)
	for _, m := range anyCaseParam.FindAllString(stripped, -1) {
		// pgx matches named arguments case-sensitively; any other spelling would bind a
		// caller-supplied value instead of the resolved tenant.
		if m != "@"+TenantParam {
			return apperr.KindMissingFilterToken, false
		}
	}

	s := normalize(sql)
	if strings.HasPrefix(s, "insert ") {
		return checkInsert(s)
	}

	loc := whereWord.FindStringIndex(s)
	if loc == nil {
		return apperr.KindMissingFilterToken, false
	}
	if !filterToken.MatchString(s[loc[1]:]) {
		return apperr.KindMissingFilterToken, false
	}
	return "", true
}

func checkInsert(s string) (string, bool) {
	m := insertCols.FindStringSubmatchIndex(s)
	if m == nil {
		return apperr.KindMissingFilterToken, false
	}
	hasColumn := false
	for _, col := range strings.Split(s[m[2]:m[3]], ",") {
		if strings.TrimSpace(col) == TenantColumn {
			hasColumn = true
			break
		}
	}
	rest := s[m[1]:]
	if !hasColumn || !strings.Contains(rest, "@"+TenantParam) {
		return apperr.KindMissingFilterToken, false
	}
	// INSERT ... SELECT reads rows too, so the source must be filtered as well.
	if strings.Contains(rest, "select ") {
		loc := whereWord.FindStringIndex(rest)
		if loc == nil || !filterToken.MatchString(rest[loc[1]:]) {
			return apperr.KindMissingFilterToken, false
		}
	}
	return "", true
}

// prefix returns at most n characters of the statement for logging.
func prefix(sql string, n int) string {
	s := strings.TrimSpace(spaces.ReplaceAllString(sql, " "))
	if len(s) > n {
		return s[:n]
	}
	return s
}
