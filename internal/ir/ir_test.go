package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClass() *Class {
	return NewClass(ClassSpec{
		Name:    "example.com/app/store.Repository",
		Package: "store",
		Kind:    KindStruct,
		Properties: []Property{
			{Name: "rules", Visibility: Protected, Type: "map[string]Rule"},
			{Name: "Name", Visibility: Public, Type: "string"},
		},
		Methods: []Method{
			{Name: "Load", Visibility: Public, HasReturnType: true, Params: []Param{{Name: "path", Type: "string"}}},
			{Name: "reset", Visibility: Private},
		},
		Interfaces: []string{"io.Closer"},
		Parents:    []string{"example.com/app/store.base"},
		Uses:       []string{"io", "fmt"},
	})
}

func TestClass_Queries(t *testing.T) {
	c := sampleClass()

	assert.Equal(t, "Repository", c.ShortName())
	assert.False(t, c.IsInterface())

	assert.True(t, c.HasMethod("Load"))
	assert.True(t, c.HasPublicMethod("Load"))
	assert.False(t, c.HasPrivateMethod("Load"))
	assert.True(t, c.HasPrivateMethod("reset"))
	assert.False(t, c.HasProtectedMethod("missing"))

	p, ok := c.Property("rules")
	require.True(t, ok)
	assert.Equal(t, Protected, p.Visibility)

	assert.True(t, c.Implements("io.Closer"))
	assert.True(t, c.ExtendsFrom("example.com/app/store.base"))
	assert.False(t, c.ExtendsFrom("io.Closer"))
	assert.True(t, c.DependsOn("fmt"))
	assert.False(t, c.DependsOn("os"))
}

func TestClass_InterfaceExtendsFromInterfaces(t *testing.T) {
	c := NewClass(ClassSpec{
		Name:       "example.com/app.ReadCloser",
		Kind:       KindInterface,
		Interfaces: []string{"io.Reader", "io.Closer"},
	})
	assert.True(t, c.ExtendsFrom("io.Reader"))
	assert.False(t, c.ExtendsFrom("io.Writer"))
}

func TestClass_SnapshotIsNotShared(t *testing.T) {
	spec := ClassSpec{Name: "a.B", Uses: []string{"fmt"}}
	c := NewClass(spec)
	spec.Uses[0] = "os"
	assert.Equal(t, []string{"fmt"}, c.Uses())

	uses := c.Uses()
	uses[0] = "net"
	assert.Equal(t, []string{"fmt"}, c.Uses())

	repo := sampleClass()
	ms := repo.Methods()
	ms[0].Params[0].Name = "changed"
	m, _ := repo.Method("Load")
	assert.Equal(t, "path", m.Params[0].Name)
}

func TestRun_Filter(t *testing.T) {
	run := Run{Outcomes: []Outcome{
		{Class: "A", Rule: "r1", Kind: OutcomePass},
		{Class: "A", Rule: "r2", Kind: OutcomeFail, Message: "boom"},
		{Class: "B", Rule: "r2", Kind: OutcomeFail},
	}}
	fails := run.Filter(OutcomeFail)
	require.Len(t, fails, 2)
	assert.Equal(t, "boom", fails[0].Message)
	assert.Empty(t, run.Filter(OutcomeException))
	assert.False(t, Summary{Warnings: 3}.Failed())
	assert.True(t, Summary{Exceptions: 1}.Failed())
}
