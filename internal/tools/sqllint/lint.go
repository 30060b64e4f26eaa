package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlStartPattern   = regexp.MustCompile(`(?i)^(select|insert|update|delete|with)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

type markerSite struct {
	file string
	name string
	line int
}

// linter collects violations across files so duplicate markers can be
// reported tree-wide.
type linter struct {
	violations []violation
	seen       map[string]markerSite
}

func newLinter() *linter {
	return &linter{seen: make(map[string]markerSite)}
}

func (l *linter) lintFile(path string, src any) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil {
				continue
			}
			marker := firstLine(raw)
			isMarked := strings.HasPrefix(marker, "--sql")
			if !isMarked && !sqlStartPattern.MatchString(marker) {
				continue
			}
			pos := fset.Position(bl.Pos())
			site := markerSite{file: path, name: joinNames(vs.Names), line: pos.Line}
			if !uuidMarkerPattern.MatchString(marker) {
				l.add(site, "missing or invalid --sql <uuid> marker")
				continue
			}
			if prev, dup := l.seen[marker]; dup {
				l.add(site, "duplicate marker, first used by "+prev.name+" at "+prev.file+":"+strconv.Itoa(prev.line))
				continue
			}
			l.seen[marker] = site
		}
		return true
	})
	return nil
}

func (l *linter) add(site markerSite, message string) {
	l.violations = append(l.violations, violation{file: site.file, name: site.name, line: site.line, message: message})
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident == nil {
			continue
		}
		parts = append(parts, ident.Name)
	}
	return strings.Join(parts, ",")
}
