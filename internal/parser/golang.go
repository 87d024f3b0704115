package parser

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	"github.com/codewithboateng/rulescan/internal/ir"
)

// GoExtractor builds a descriptor from the single struct or interface type
// declared in a Go file.
type GoExtractor struct {
	modules *modules
}

func NewGoExtractor() *GoExtractor {
	return &GoExtractor{modules: newModules()}
}

type fileScan struct {
	fset    *token.FileSet
	file    *ast.File
	pkgPath string // import path, or package name outside a module
	imports map[string]string
	types   []typeDecl
	methods []*ast.FuncDecl
	asserts []*ast.ValueSpec
}

type typeDecl struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
}

func (g *GoExtractor) Extract(p string) (*ir.Class, error) {
	src, err := os.ReadFile(p)
	if err != nil {
		return nil, &ExtractionError{Path: p, Err: err}
	}
	fset := token.NewFileSet()
	f, err := goparser.ParseFile(fset, p, src, goparser.ParseComments|goparser.SkipObjectResolution)
	if err != nil {
		return nil, &ExtractionError{Path: p, Err: err}
	}

	fs := &fileScan{fset: fset, file: f, imports: map[string]string{}}
	fs.pkgPath = g.modules.importPath(filepath.Dir(p))
	if fs.pkgPath == "" {
		fs.pkgPath = f.Name.Name
	}
	fs.collect()

	if len(fs.types) != 1 {
		return nil, &NoSupportedClassError{Path: p, Count: len(fs.types)}
	}
	return fs.class(fs.types[0], p), nil
}

// collect walks top-level declarations only; function bodies are pruned.
func (fs *fileScan) collect() {
	for _, imp := range fs.file.Imports {
		ip, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := defaultImportName(ip)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == "_" || name == "." {
			name = ip
		}
		fs.imports[name] = ip
	}

	in := inspector.New([]*ast.File{fs.file})
	filter := []ast.Node{(*ast.GenDecl)(nil), (*ast.FuncDecl)(nil)}
	in.Nodes(filter, func(n ast.Node, push bool) bool {
		if !push {
			return false
		}
		switch d := n.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil && len(d.Recv.List) == 1 {
				fs.methods = append(fs.methods, d)
			}
		case *ast.GenDecl:
			fs.genDecl(d)
		}
		return false
	})
}

func (fs *fileScan) genDecl(d *ast.GenDecl) {
	switch d.Tok {
	case token.TYPE:
		for _, s := range d.Specs {
			ts := s.(*ast.TypeSpec)
			if ts.Assign.IsValid() {
				continue // alias
			}
			switch ts.Type.(type) {
			case *ast.StructType, *ast.InterfaceType:
				doc := ts.Doc
				if doc == nil && !d.Lparen.IsValid() {
					doc = d.Doc
				}
				fs.types = append(fs.types, typeDecl{spec: ts, doc: doc})
			}
		}
	case token.VAR:
		for _, s := range d.Specs {
			vs := s.(*ast.ValueSpec)
			if vs.Type != nil && len(vs.Names) == 1 && vs.Names[0].Name == "_" && len(vs.Values) == 1 {
				fs.asserts = append(fs.asserts, vs)
			}
		}
	}
}

func (fs *fileScan) class(td typeDecl, p string) *ir.Class {
	ts := td.spec
	name := ts.Name.Name
	spec := ir.ClassSpec{
		Name:      fs.pkgPath + "." + name,
		ShortName: name,
		Package:   fs.file.Name.Name,
		Line:      fs.line(ts.Pos()),
		Doc:       td.doc.Text(),
		Source:    p,
		Uses:      fs.uses(),
	}

	switch t := ts.Type.(type) {
	case *ast.StructType:
		spec.Kind = ir.KindStruct
		for _, field := range t.Fields.List {
			if len(field.Names) == 0 {
				spec.Parents = append(spec.Parents, fs.qualify(field.Type))
				continue
			}
			for _, n := range field.Names {
				spec.Properties = append(spec.Properties, ir.Property{
					Name:       n.Name,
					Visibility: visibility(n.Name),
					Type:       types.ExprString(field.Type),
					Doc:        joinDocs(field.Doc, field.Comment),
					Line:       fs.line(n.Pos()),
				})
			}
		}
		for _, fd := range fs.methods {
			if receiverName(fd.Recv.List[0].Type) == name {
				spec.Methods = append(spec.Methods, fs.method(fd.Name, fd.Type, fd.Doc.Text()))
			}
		}
		for _, vs := range fs.asserts {
			if refersTo(vs.Values[0], name) {
				spec.Interfaces = append(spec.Interfaces, fs.qualify(vs.Type))
			}
		}
	case *ast.InterfaceType:
		spec.Kind = ir.KindInterface
		for _, field := range t.Methods.List {
			ft, isFunc := field.Type.(*ast.FuncType)
			if len(field.Names) == 0 || !isFunc {
				// embedded interface or type-set term
				spec.Interfaces = append(spec.Interfaces, fs.qualify(field.Type))
				continue
			}
			for _, n := range field.Names {
				spec.Methods = append(spec.Methods, fs.method(n, ft, joinDocs(field.Doc, field.Comment)))
			}
		}
	}
	return ir.NewClass(spec)
}

func (fs *fileScan) method(name *ast.Ident, ft *ast.FuncType, doc string) ir.Method {
	m := ir.Method{
		Name:       name.Name,
		Visibility: visibility(name.Name),
		Doc:        doc,
		Line:       fs.line(name.Pos()),
	}
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			typ := types.ExprString(field.Type)
			if len(field.Names) == 0 {
				m.Params = append(m.Params, ir.Param{Type: typ})
				continue
			}
			for _, n := range field.Names {
				m.Params = append(m.Params, ir.Param{Name: n.Name, Type: typ})
			}
		}
	}
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			typ := types.ExprString(field.Type)
			count := max(len(field.Names), 1)
			for range count {
				m.Results = append(m.Results, typ)
			}
		}
	}
	m.HasReturnType = len(m.Results) > 0
	return m
}

func (fs *fileScan) uses() []string {
	out := make([]string, 0, len(fs.file.Imports))
	for _, imp := range fs.file.Imports {
		if ip, err := strconv.Unquote(imp.Path.Value); err == nil {
			out = append(out, ip)
		}
	}
	return out
}

func (fs *fileScan) line(pos token.Pos) int {
	return fs.fset.Position(pos).Line
}

// qualify turns a type expression into a fully-qualified type name using the
// file's imports.
func (fs *fileScan) qualify(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return fs.qualify(t.X)
	case *ast.ParenExpr:
		return fs.qualify(t.X)
	case *ast.IndexExpr:
		return fs.qualify(t.X)
	case *ast.IndexListExpr:
		return fs.qualify(t.X)
	case *ast.Ident:
		if types.Universe.Lookup(t.Name) != nil {
			return t.Name
		}
		return fs.pkgPath + "." + t.Name
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			if ip, ok := fs.imports[x.Name]; ok {
				return ip + "." + t.Sel.Name
			}
			return x.Name + "." + t.Sel.Name
		}
	}
	return types.ExprString(e)
}

var versionSuffix = regexp.MustCompile(`^v[0-9]+$`)

// defaultImportName guesses the package name of an unaliased import from its
// path: the last element, skipping a major version suffix.
func defaultImportName(ip string) string {
	name := path.Base(ip)
	if versionSuffix.MatchString(name) {
		if dir := path.Dir(ip); dir != "." {
			name = path.Base(dir)
		}
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i] // gopkg.in/yaml.v3
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	return strings.ReplaceAll(name, "-", "")
}

func receiverName(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.ParenExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// refersTo matches the value side of an interface assertion:
// (*T)(nil), T{}, &T{}, new(T), T(nil).
func refersTo(e ast.Expr, name string) bool {
	switch t := e.(type) {
	case *ast.CallExpr:
		if id, ok := t.Fun.(*ast.Ident); ok && id.Name == "new" && len(t.Args) == 1 {
			return receiverName(t.Args[0]) == name
		}
		return receiverName(t.Fun) == name
	case *ast.CompositeLit:
		return receiverName(t.Type) == name
	case *ast.UnaryExpr:
		return t.Op == token.AND && refersTo(t.X, name)
	case *ast.ParenExpr:
		return refersTo(t.X, name)
	}
	return false
}

func visibility(name string) ir.Visibility {
	if ast.IsExported(name) {
		return ir.Public
	}
	return ir.Private
}

func joinDocs(groups ...*ast.CommentGroup) string {
	var parts []string
	for _, g := range groups {
		if t := g.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "")
}
