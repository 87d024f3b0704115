package rulesdsl

import (
	"github.com/codewithboateng/rulescan/internal/annotation"
	"github.com/codewithboateng/rulescan/internal/ir"
)

// ClassVars exposes a descriptor to CEL as the `class` variable.
func ClassVars(c *ir.Class, reader *annotation.Reader) map[string]any {
	props := []any{}
	for _, p := range c.Properties() {
		props = append(props, map[string]any{
			"name":       p.Name,
			"type":       p.Type,
			"visibility": string(p.Visibility),
			"public":     p.Visibility == ir.Public,
			"private":    p.Visibility == ir.Private,
			"line":       p.Line,
		})
	}
	methods := []any{}
	for _, m := range c.Methods() {
		params := []any{}
		for _, p := range m.Params {
			params = append(params, map[string]any{"name": p.Name, "type": p.Type})
		}
		methods = append(methods, map[string]any{
			"name":            m.Name,
			"visibility":      string(m.Visibility),
			"public":          m.Visibility == ir.Public,
			"private":         m.Visibility == ir.Private,
			"has_return_type": m.HasReturnType,
			"params":          params,
			"results":         anyList(m.Results),
			"line":            m.Line,
		})
	}
	anns := []any{}
	if reader != nil {
		for _, a := range reader.Read(c.Doc()) {
			anns = append(anns, a.Name)
		}
	}
	return map[string]any{"class": map[string]any{
		"name":        c.Name(),
		"short_name":  c.ShortName(),
		"package":     c.Package(),
		"kind":        string(c.Kind()),
		"source":      c.Source(),
		"line":        c.Line(),
		"interfaces":  anyList(c.Interfaces()),
		"parents":     anyList(c.Parents()),
		"uses":        anyList(c.Uses()),
		"annotations": anns,
		"properties":  props,
		"methods":     methods,
	}}
}

func anyList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
