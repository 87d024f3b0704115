package ir

import "slices"

const Version = "1.0"

type Kind string

const (
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
)

type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected" // never produced from Go source
	Private   Visibility = "private"
)

// Class is the structural snapshot of one discovered type. It is built once
// and never mutated; accessors hand out copies.
type Class struct {
	name       string
	shortName  string
	pkg        string
	kind       Kind
	line       int
	doc        string
	source     string
	properties []Property
	methods    []Method
	interfaces []string
	parents    []string
	uses       []string
}

type Property struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	Type       string     `json:"type,omitempty"`
	Doc        string     `json:"doc,omitempty"`
	Line       int        `json:"line,omitempty"`
}

type Method struct {
	Name          string     `json:"name"`
	Visibility    Visibility `json:"visibility"`
	HasReturnType bool       `json:"has_return_type"`
	Params        []Param    `json:"params,omitempty"`
	Results       []string   `json:"results,omitempty"`
	Doc           string     `json:"doc,omitempty"`
	Line          int        `json:"line,omitempty"`
}

type Param struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// ClassSpec carries the fields of a Class at construction time.
type ClassSpec struct {
	Name       string
	ShortName  string
	Package    string
	Kind       Kind
	Line       int
	Doc        string
	Source     string // empty when built by name only
	Properties []Property
	Methods    []Method
	Interfaces []string
	Parents    []string
	Uses       []string
}

// NewClass freezes spec into a Class.
func NewClass(spec ClassSpec) *Class {
	short := spec.ShortName
	if short == "" {
		short = shortOf(spec.Name)
	}
	kind := spec.Kind
	if kind == "" {
		kind = KindStruct
	}
	methods := make([]Method, len(spec.Methods))
	for i, m := range spec.Methods {
		m.Params = slices.Clone(m.Params)
		m.Results = slices.Clone(m.Results)
		methods[i] = m
	}
	return &Class{
		name:       spec.Name,
		shortName:  short,
		pkg:        spec.Package,
		kind:       kind,
		line:       spec.Line,
		doc:        spec.Doc,
		source:     spec.Source,
		properties: slices.Clone(spec.Properties),
		methods:    methods,
		interfaces: slices.Clone(spec.Interfaces),
		parents:    slices.Clone(spec.Parents),
		uses:       slices.Clone(spec.Uses),
	}
}

func shortOf(fqn string) string {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == '.' || fqn[i] == '/' {
			return fqn[i+1:]
		}
	}
	return fqn
}

func (c *Class) Name() string      { return c.name }
func (c *Class) ShortName() string { return c.shortName }
func (c *Class) Package() string   { return c.pkg }
func (c *Class) Kind() Kind        { return c.kind }
func (c *Class) Line() int         { return c.line }
func (c *Class) Doc() string       { return c.doc }

// Source is the originating file, or "" when the class was built by name.
func (c *Class) Source() string { return c.source }

func (c *Class) IsInterface() bool { return c.kind == KindInterface }

func (c *Class) Properties() []Property { return slices.Clone(c.properties) }
func (c *Class) Interfaces() []string   { return slices.Clone(c.interfaces) }
func (c *Class) Parents() []string      { return slices.Clone(c.parents) }
func (c *Class) Uses() []string         { return slices.Clone(c.uses) }

func (c *Class) Methods() []Method {
	out := make([]Method, len(c.methods))
	for i, m := range c.methods {
		m.Params = slices.Clone(m.Params)
		m.Results = slices.Clone(m.Results)
		out[i] = m
	}
	return out
}

func (c *Class) Method(name string) (Method, bool) {
	for _, m := range c.methods {
		if m.Name == name {
			m.Params = slices.Clone(m.Params)
			m.Results = slices.Clone(m.Results)
			return m, true
		}
	}
	return Method{}, false
}

func (c *Class) HasMethod(name string) bool {
	_, ok := c.Method(name)
	return ok
}

func (c *Class) HasPublicMethod(name string) bool    { return c.methodIs(name, Public) }
func (c *Class) HasProtectedMethod(name string) bool { return c.methodIs(name, Protected) }
func (c *Class) HasPrivateMethod(name string) bool   { return c.methodIs(name, Private) }

func (c *Class) methodIs(name string, v Visibility) bool {
	m, ok := c.Method(name)
	return ok && m.Visibility == v
}

func (c *Class) Property(name string) (Property, bool) {
	for _, p := range c.properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func (c *Class) HasProperty(name string) bool {
	_, ok := c.Property(name)
	return ok
}

// Implements reports whether iface is among the declared interfaces.
func (c *Class) Implements(iface string) bool {
	return slices.Contains(c.interfaces, iface)
}

// ExtendsFrom checks the extended interfaces for an interface type and the
// embedded parents otherwise.
func (c *Class) ExtendsFrom(parent string) bool {
	if c.IsInterface() {
		return slices.Contains(c.interfaces, parent)
	}
	return slices.Contains(c.parents, parent)
}

// DependsOn reports whether the class's file imports path.
func (c *Class) DependsOn(path string) bool {
	return slices.Contains(c.uses, path)
}

func (c *Class) String() string { return c.name }
