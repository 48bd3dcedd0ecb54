package fuzztests

import (
	"strings"
	"testing"

	"bitspec/internal/diag"
	"bitspec/internal/layout"
	"bitspec/internal/resolve"
	"bitspec/internal/schema"
	"bitspec/internal/source"
	"bitspec/internal/testkit"
)

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

func FuzzLoadSchema(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		id := fs.AddVirtual("fuzz.yaml", input)
		bag := diag.NewBag(16)
		s, err := schema.Load(fs, id, diag.BagReporter{Bag: bag})
		if err != nil {
			if s != nil {
				t.Fatalf("Load returned both a schema and %v", err)
			}
			return
		}
		if err := testkit.CheckDiagnosticInvariants(bag, fs.Get(id)); err != nil {
			t.Fatalf("loader diagnostics: %v", err)
		}
	})
}

func FuzzResolveDeterministic(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		id := fs.AddVirtual("fuzz.yaml", input)
		s, err := schema.Load(fs, id, nil)
		if err != nil {
			return
		}
		sf := fs.Get(id)

		first := resolve.Resolve(s, resolve.Options{})
		second := resolve.Resolve(s, resolve.Options{})

		if err := testkit.CheckDiagnosticInvariants(first.Bag, sf); err != nil {
			t.Fatalf("resolver diagnostics: %v", err)
		}
		if err := testkit.CheckPlanInvariants(first.Plan, sf); err != nil {
			t.Fatalf("plan: %v", err)
		}
		a := diag.FormatGoldenDiagnostics(first.Bag.Items(), fs, true)
		b := diag.FormatGoldenDiagnostics(second.Bag.Items(), fs, true)
		if a != b {
			t.Fatalf("diagnostics differ between runs:\n%s\n---\n%s", a, b)
		}
		if layout.DumpString(first.Plan) != layout.DumpString(second.Plan) {
			t.Fatalf("plans differ between runs")
		}
		for _, c := range s.Containers {
			if _, ok := first.Plan.Lookup(c.Name); !ok && !reported(first.Bag, c.Name) {
				t.Fatalf("container %q has neither a plan nor a diagnostic", c.Name)
			}
		}
	})
}

// reported tells whether some diagnostic points at container or one of its members.
func reported(bag *diag.Bag, container string) bool {
	for _, d := range bag.Items() {
		if d.Node == container || strings.HasPrefix(d.Node, container+"::") {
			return true
		}
	}
	return false
}
