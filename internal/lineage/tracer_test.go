package lineage

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/dbtrace/internal/graph"
)

// testProject builds the usual three-layer shape: a raw source feeding a
// staging model feeding a mart.
func testProject(t *testing.T) (*graph.Graph, *Tracer) {
	t.Helper()

	nodes := []graph.Node{
		{
			ID:     "source.shop.raw.orders",
			Kind:   graph.KindSource,
			Label:  "raw.orders",
			Schema: "raw",
			Columns: []graph.ColumnMeta{
				{Name: "id"},
				{Name: "amount"},
				{Name: "status"},
			},
		},
		{
			ID:          "model.shop.stg_orders",
			Kind:        graph.KindStaging,
			Label:       "stg_orders",
			CompiledSQL: "select id, amount, status from raw__orders",
		},
		{
			ID:          "model.shop.orders",
			Kind:        graph.KindMart,
			Label:       "orders",
			CompiledSQL: "select id, amount * 1.1 as amount_with_tax from stg_orders",
		},
	}
	edges := []graph.Edge{
		{From: "source.shop.raw.orders", To: "model.shop.stg_orders"},
		{From: "model.shop.stg_orders", To: "model.shop.orders"},
	}

	g, errs := graph.Build(1, nodes, edges)
	if len(errs) != 0 {
		t.Fatalf("build errors: %v", errs)
	}
	cache, err := NewCache(1, 16)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return g, NewTracer(g, cache)
}

func hasEntry(trace []TraceEntry, model, column string, depth int) bool {
	for _, e := range trace {
		if e.Model == model && e.Column == column && e.Depth == depth {
			return true
		}
	}
	return false
}

func TestResolveColumns(t *testing.T) {
	_, tracer := testProject(t)

	res, err := tracer.ResolveColumns("model.shop.orders")
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	if len(res.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(res.Columns))
	}

	var tax *ResolvedColumn
	for i := range res.Columns {
		if res.Columns[i].Name == "amount_with_tax" {
			tax = &res.Columns[i]
		}
	}
	if tax == nil {
		t.Fatal("amount_with_tax not resolved")
	}
	if !tax.IsDerived {
		t.Error("amount_with_tax should be derived")
	}
	if len(tax.Sources) != 1 {
		t.Fatalf("sources = %+v", tax.Sources)
	}
	if tax.Sources[0].NodeID != "model.shop.stg_orders" {
		t.Errorf("source resolved to %q, want stg_orders", tax.Sources[0].NodeID)
	}
	if tax.Sources[0].Column != "amount" {
		t.Errorf("source column = %q, want amount", tax.Sources[0].Column)
	}
}

func TestResolveColumnsUnknownNode(t *testing.T) {
	_, tracer := testProject(t)

	_, err := tracer.ResolveColumns("model.shop.nope")
	var nf *graph.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestTraceColumnAcrossModels(t *testing.T) {
	_, tracer := testProject(t)

	res, err := tracer.TraceColumn("model.shop.orders", "amount_with_tax", 2)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}

	if res.Lineage == nil || res.Lineage.Name != "amount_with_tax" {
		t.Fatalf("lineage = %+v", res.Lineage)
	}
	if !hasEntry(res.Trace, "model.shop.stg_orders", "amount", 1) {
		t.Errorf("trace missing stg_orders.amount at depth 1: %+v", res.Trace)
	}
	if !hasEntry(res.Trace, "source.shop.raw.orders", "amount", 2) {
		t.Errorf("trace missing raw.orders.amount at depth 2: %+v", res.Trace)
	}
}

func TestTraceColumnDepthBound(t *testing.T) {
	_, tracer := testProject(t)

	res, err := tracer.TraceColumn("model.shop.orders", "amount_with_tax", 1)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}
	if len(res.Trace) != 1 {
		t.Fatalf("expected 1 entry at depth 1, got %+v", res.Trace)
	}

	res, err = tracer.TraceColumn("model.shop.orders", "amount_with_tax", 0)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}
	if len(res.Trace) != 0 {
		t.Errorf("depth 0 should yield an empty trace, got %+v", res.Trace)
	}
}

func TestTraceColumnErrors(t *testing.T) {
	_, tracer := testProject(t)

	_, err := tracer.TraceColumn("model.shop.ghost", "amount", 2)
	var nf *graph.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}

	_, err = tracer.TraceColumn("model.shop.orders", "no_such_column", 2)
	var cnf *ColumnNotFoundError
	if !errors.As(err, &cnf) {
		t.Errorf("expected ColumnNotFoundError, got %v", err)
	}
}

func TestTraceColumnNoDuplicatePairs(t *testing.T) {
	nodes := []graph.Node{
		{ID: "raw", Label: "raw", Columns: []graph.ColumnMeta{{Name: "amount"}}},
		{ID: "left", Label: "left_split", CompiledSQL: "select amount from raw"},
		{ID: "right", Label: "right_split", CompiledSQL: "select amount from raw"},
		{ID: "final", Label: "final", CompiledSQL: "select l.amount + r.amount as total from left_split l join right_split r on l.id = r.id"},
	}
	edges := []graph.Edge{
		{From: "raw", To: "left"},
		{From: "raw", To: "right"},
		{From: "left", To: "final"},
		{From: "right", To: "final"},
	}
	g, _ := graph.Build(1, nodes, edges)
	cache, _ := NewCache(1, 16)
	tracer := NewTracer(g, cache)

	res, err := tracer.TraceColumn("final", "total", 5)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}

	seen := map[string]bool{}
	for _, e := range res.Trace {
		key := e.Model + ":" + e.Column
		if seen[key] {
			t.Errorf("duplicate trace entry %s", key)
		}
		seen[key] = true
	}
	if !hasEntry(res.Trace, "raw", "amount", 2) {
		t.Errorf("diamond should converge on raw.amount once: %+v", res.Trace)
	}
}

func TestTraceColumnCycleTerminates(t *testing.T) {
	nodes := []graph.Node{
		{ID: "a", Label: "alpha", CompiledSQL: "select x from beta"},
		{ID: "b", Label: "beta", CompiledSQL: "select x from alpha"},
	}
	edges := []graph.Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
	}
	g, _ := graph.Build(1, nodes, edges)
	cache, _ := NewCache(1, 16)
	tracer := NewTracer(g, cache)

	res, err := tracer.TraceColumn("a", "x", -1)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}
	if len(res.Trace) > 2 {
		t.Errorf("cyclic references should terminate quickly, got %+v", res.Trace)
	}
}

func TestTraceColumnParseFailureDegrades(t *testing.T) {
	nodes := []graph.Node{
		{ID: "broken", Label: "broken", CompiledSQL: "this is not sql"},
		{ID: "consumer", Label: "consumer", CompiledSQL: "select amount from broken"},
	}
	edges := []graph.Edge{{From: "broken", To: "consumer"}}
	g, _ := graph.Build(1, nodes, edges)
	cache, _ := NewCache(1, 16)
	tracer := NewTracer(g, cache)

	// The consumer parses; the broken upstream stops its branch silently.
	res, err := tracer.TraceColumn("consumer", "amount", 3)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}
	if !hasEntry(res.Trace, "broken", "amount", 1) {
		t.Errorf("entry for the broken model itself should remain: %+v", res.Trace)
	}
	if len(res.Trace) != 1 {
		t.Errorf("the broken branch should not expand: %+v", res.Trace)
	}

	// Tracing on the broken node directly degrades instead of failing.
	res, err = tracer.TraceColumn("broken", "amount", 3)
	if err != nil {
		t.Fatalf("TraceColumn on broken node: %v", err)
	}
	if res.Failure == nil {
		t.Error("expected a carried parse failure")
	}
}

func TestTraceWildcardPassthrough(t *testing.T) {
	nodes := []graph.Node{
		{
			ID:    "source.shop.raw.orders",
			Label: "raw.orders",
			Columns: []graph.ColumnMeta{
				{Name: "id"},
				{Name: "amount"},
			},
		},
		{ID: "model.shop.stg_orders", Label: "stg_orders", CompiledSQL: "select * from raw__orders"},
		{ID: "model.shop.orders", Label: "orders", CompiledSQL: "select amount from stg_orders"},
	}
	edges := []graph.Edge{
		{From: "source.shop.raw.orders", To: "model.shop.stg_orders"},
		{From: "model.shop.stg_orders", To: "model.shop.orders"},
	}
	g, _ := graph.Build(1, nodes, edges)
	cache, _ := NewCache(1, 16)
	tracer := NewTracer(g, cache)

	res, err := tracer.TraceColumn("model.shop.orders", "amount", 3)
	if err != nil {
		t.Fatalf("TraceColumn: %v", err)
	}
	if !hasEntry(res.Trace, "model.shop.stg_orders", "amount", 1) {
		t.Errorf("trace missing stg_orders.amount: %+v", res.Trace)
	}
	if !hasEntry(res.Trace, "source.shop.raw.orders", "amount", 2) {
		t.Errorf("wildcard should expand against declared source columns: %+v", res.Trace)
	}
}

func TestCacheReuse(t *testing.T) {
	_, tracer := testProject(t)

	if _, err := tracer.ResolveColumns("model.shop.orders"); err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if tracer.cache.Len() == 0 {
		t.Error("cache should hold the parsed result")
	}

	sql := "select id, amount * 1.1 as amount_with_tax from stg_orders"
	if _, ok := tracer.cache.Get("model.shop.orders", sql); !ok {
		t.Error("cache lookup by node id and source text should hit")
	}
}

func TestTableResolverTies(t *testing.T) {
	nodes := []graph.Node{
		{ID: "m.a", Label: "orders", Database: "prod", Schema: "sales"},
		{ID: "m.b", Label: "orders", Database: "prod", Schema: "ops"},
		{ID: "m.c", Label: "consumer"},
	}
	edges := []graph.Edge{
		{From: "m.a", To: "m.c"},
		{From: "m.b", To: "m.c"},
	}
	g, _ := graph.Build(1, nodes, edges)
	resolver := NewTableResolver(g)

	// Unqualified name shared by two candidates stays unresolved.
	if id, ok := resolver.Resolve("orders", "m.c"); ok {
		t.Errorf("ambiguous reference resolved to %q, want unresolved", id)
	}

	// A fully qualified reference picks the exact candidate.
	id, ok := resolver.Resolve("prod.sales.orders", "m.c")
	if !ok || id != "m.a" {
		t.Errorf("qualified resolve = %q, %v", id, ok)
	}

	// CTE-style aliases that match nothing upstream are unresolved.
	if _, ok := resolver.Resolve("base", "m.c"); ok {
		t.Error("unknown alias should stay unresolved")
	}
}
