package annotation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/rulescan/internal/ir"
)

const annotatedDoc = `AnnotatedClass is fully annotated.
@ApplyRule
@ApplyRule("single-rule")
@ApplyRule({"rule-1", "rule-2"})
@ApplyRule(names={"rule-1", "rule-2"})
@ApplyRule(names="invalid")
@ApplyRule(regex="/^starts-with-/")
@ApplyRule(regex="invalid")
@ApplyRule(names={"rule-1", "rule-2"}, regex="/^won't-be-tested/")
@ApplyRule("override", names={"rule-1", "rule-2"}, regex="/^this-either/")
`

const poorlyAnnotatedDoc = `PoorlyAnnotatedClass has more unknown markers than a read tolerates.
@ApplyRule
@asdf
@qwer
@zxcv
@wert
@sdfg
@xcvb
@erty
@dfgh
@cvbn
@poiu
@lkjh
`

func annotatedClass() *ir.Class {
	return ir.NewClass(ir.ClassSpec{
		Name: "example.com/app.AnnotatedClass",
		Doc:  annotatedDoc,
		Properties: []ir.Property{
			{Name: "test", Visibility: ir.Private, Doc: "@var mixed\n@Required\n"},
		},
		Methods: []ir.Method{
			{Name: "Test", Visibility: ir.Public, Doc: "@return mixed\n@Required\n"},
		},
	})
}

func TestParse_DeclarationForms(t *testing.T) {
	anns, err := Parse(annotatedDoc)
	require.NoError(t, err)
	require.Len(t, anns, 9)

	for _, a := range anns {
		assert.Equal(t, ApplyRuleName, a.Name)
	}
	assert.Equal(t, 2, anns[0].Line)
	assert.Empty(t, anns[0].Positional)
	assert.Equal(t, []any{"single-rule"}, anns[1].Positional)
	assert.Equal(t, []any{[]any{"rule-1", "rule-2"}}, anns[2].Positional)

	names, ok := anns[3].Arg("names")
	require.True(t, ok)
	assert.Equal(t, []any{"rule-1", "rule-2"}, names)

	regex, ok := anns[5].Arg("regex")
	require.True(t, ok)
	assert.Equal(t, "/^starts-with-/", regex)
}

func TestParse_BlockCommentGutterAndValues(t *testing.T) {
	doc := `
 * Thing does things.
 * @Config(
 *     enabled=true, limit=3, ratio=0.5, mode=Mode::STRICT,
 *     nested=@Required, none=null, opts={"a"=1, "b"=2}
 * )
`
	anns, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	a := anns[0]
	assert.Equal(t, "Config", a.Name)
	assert.Equal(t, true, a.Named["enabled"])
	assert.Equal(t, 3, a.Named["limit"])
	assert.Equal(t, 0.5, a.Named["ratio"])
	assert.Equal(t, "Mode::STRICT", a.Named["mode"])
	assert.Equal(t, Annotation{Name: "Required", Line: 5}, a.Named["nested"])
	assert.Nil(t, a.Named["none"])
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, a.Named["opts"])
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse(`@ApplyRule("unterminated)`)
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
	assert.Contains(t, syn.Error(), "[Syntax Error]")

	_, err = Parse("@ApplyRule(names={\"a\" \"b\"})")
	require.ErrorAs(t, err, &syn)
}

func TestParse_IgnoresMidLineAt(t *testing.T) {
	anns, err := Parse("contact ops@example.com for help")
	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestNewApplyRule(t *testing.T) {
	anns, err := Parse(annotatedDoc)
	require.NoError(t, err)

	rules := make([]ApplyRule, len(anns))
	for i, a := range anns {
		rules[i] = NewApplyRule(a)
	}

	assert.Empty(t, rules[0].Names)
	assert.Empty(t, rules[0].Regex)
	assert.Len(t, rules[1].Names, 1)
	assert.Len(t, rules[2].Names, 2)
	assert.Len(t, rules[3].Names, 2)
	assert.Equal(t, []string{"invalid"}, rules[4].Names)
	assert.Equal(t, "/^starts-with-/", rules[5].Regex)
	assert.Equal(t, "invalid", rules[6].Regex)

	assert.True(t, rules[7].Matches("rule-1"))
	assert.False(t, rules[7].Matches("won't-be-tested"))

	assert.True(t, rules[8].Matches("override"))
	assert.False(t, rules[8].Matches("rule-1"))
}

func TestApplyRule_Matches(t *testing.T) {
	tests := []struct {
		name  string
		rule  ApplyRule
		input string
		want  bool
	}{
		{"wildcard", ApplyRule{}, "\x00anything\xff", true},
		{"exact", ApplyRule{Names: []string{"a"}}, "a", true},
		{"exact miss", ApplyRule{Names: []string{"a"}}, "b", false},
		{"regex", ApplyRule{Regex: "/^starts-with-/"}, "starts-with-x", true},
		{"regex miss", ApplyRule{Regex: "/^starts-with-/"}, "x-starts-with-", false},
		{"regex flags", ApplyRule{Regex: "/^ABC$/iu"}, "abc", true},
		{"alternate delimiter", ApplyRule{Regex: "#^a/b$#"}, "a/b", true},
		{"bracket delimiter", ApplyRule{Regex: "{^x}"}, "xy", true},
		{"no delimiter", ApplyRule{Regex: "invalid"}, "invalid", false},
		{"bad modifier", ApplyRule{Regex: "/a/q"}, "a", false},
		{"bad pattern", ApplyRule{Regex: "/(/"}, "(", false},
		{"names win over regex", ApplyRule{Names: []string{"a"}, Regex: "/.*/"}, "b", false},
		{"lookahead", ApplyRule{Regex: "/^foo(?!bar)/"}, "foobaz", true},
		{"non-string regex", ApplyRule{badRegex: true}, "zzz", false},
		{"names beat non-string regex", ApplyRule{Names: []string{"a"}, badRegex: true}, "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(tt.input))
		})
	}
}

func TestReader_MalformedApplyRuleMatchesNothingElse(t *testing.T) {
	tests := []struct {
		doc  string
		hits []string
	}{
		{`@ApplyRule(regex=123)`, nil},
		{`@ApplyRule(regex={"a"})`, nil},
		{`@ApplyRule(regex=true)`, nil},
		{`@ApplyRule(names={a="x"})`, []string{"x"}},
		{`@ApplyRule({"first", name="second"})`, []string{"first", "second"}},
		{`@ApplyRule(names={"a"}, regex=7)`, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			r := NewReader()
			c := ir.NewClass(ir.ClassSpec{Name: "example.com/app.Target", Doc: tt.doc})
			assert.False(t, r.MatchesApplyRule(c, "zzz"))
			for _, name := range tt.hits {
				assert.True(t, r.MatchesApplyRule(c, name), name)
			}
		})
	}
}

func TestNewApplyRule_MapValuesInKeyOrder(t *testing.T) {
	anns, err := Parse(`@ApplyRule(names={b="y", a="x", "z"})`)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, []string{"z", "x", "y"}, NewApplyRule(anns[0]).Names)
}

func TestReader_KnownAnnotations(t *testing.T) {
	r := NewReader()
	c := annotatedClass()

	assert.Len(t, r.ClassAnnotations(c, ""), 9)
	assert.Empty(t, r.ClassAnnotations(c, "Attributes"))
	assert.Len(t, r.PropertyAnnotations(c, "test", RequiredName), 1)
	assert.Len(t, r.MethodAnnotations(c, "Test", ""), 1)
	assert.Empty(t, r.MethodAnnotations(c, "missing", ""))

	assert.True(t, r.MatchesApplyRule(c, "any"))
	plain := ir.NewClass(ir.ClassSpec{Name: "example.com/app.PlainClass"})
	assert.False(t, r.MatchesApplyRule(plain, "any"))
}

func TestReader_SkipsUnknownMarkers(t *testing.T) {
	r := NewReader()
	anns := r.Read("@ApplyRule\n@Entity\n@Table(\"users\")\n")
	require.Len(t, anns, 1)
	assert.Equal(t, ApplyRuleName, anns[0].Name)
	assert.Contains(t, r.ignored, "Entity")
	assert.Contains(t, r.ignored, "Table")
}

func TestReader_GivesUpOnPoorlyAnnotatedDoc(t *testing.T) {
	r := NewReader()
	assert.Empty(t, r.Read(poorlyAnnotatedDoc))
}

func TestReader_SyntaxErrorYieldsNothing(t *testing.T) {
	r := NewReader()
	assert.Empty(t, r.Read("@ApplyRule(\n"))
}

func TestReader_QualifiedNames(t *testing.T) {
	r := NewReader()
	anns := r.Read(`@\Vendor\Annotations\ApplyRule("x")`)
	require.Len(t, anns, 1)
	assert.Equal(t, ApplyRuleName, anns[0].Name)
}

func TestUnknownAnnotationError(t *testing.T) {
	r := NewReader()
	_, err := r.resolve("@Mystery")
	require.True(t, errors.Is(err, ErrUnknownAnnotation))
	var unknown *UnknownAnnotationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Mystery", unknown.Marker)
}
