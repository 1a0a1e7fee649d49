package strictus

// Package strictus provides:
//
// - Record declarations with typed fields, defaults and inheritance (Object builder)
// - A Registry that resolves each declaration into an ordered Schema once
// - Construction of immutable Records from untyped nested data with type coercion
// - Projection of Records back into plain maps, slices and primitives
// - A stable error model via Issues (access path, JSON Pointer, code, message)
//
// Design policy:
// - Keep the engine in the root package; input adapters live under source/.
// - Place declarative schema files under decl/, reusable refine hooks under rules/,
//   metrics under metrics/ and the CLI under cmd/strictus.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  item := strictus.Object("Item").
//      Field("id", strictus.String()).Required().
//      Field("name", strictus.String()).
//      MustBuild()
//  order := strictus.Object("Order").
//      Field("items", strictus.Sequence(strictus.RecordOf(item))).DefaultFactory(func() any { return []any{} }).
//      MustBuild()
//
//  rec, err := strictus.New(order, map[string]any{"items": []any{map[string]any{"id": 1}}})
//  data := rec.ToMap() // {"items": [{"id": "1"}]}
//
