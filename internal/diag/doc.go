// Package diag defines the diagnostic model shared by the schema loader and
// the directive resolver.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Kind – the user-facing class (MissingRequiredDirective, ConflictingDirectives,
//     DirectiveIllegalInScope, MalformedDirectiveValue, CrossMemberIncompatibility).
//   - Code – compact numeric identifier with a stable string form (SCH1001, RES3002).
//     Each code maps to exactly one Kind.
//   - Message – short human text naming the directives involved.
//   - Primary – the source.Span the diagnostic points at.
//   - Node – path of the smallest declaration that violates a rule.
//   - Directives – directive names in rule order, for tooling that matches on them.
//   - Notes – optional secondary spans ("first declared here").
//
// There are no severities: every diagnostic is an error and blocks the layout
// plan of the container it belongs to.
//
// # Emitting diagnostics
//
// Producers report through a Reporter. ReportError returns a ReportBuilder that
// can attach notes and directive names before Emit. BagReporter appends to a
// Bag, which is append-only and keeps insertion order: the resolver relies on it
// to reproduce traversal order exactly.
//
// # Consumers
//
//   - internal/diagfmt renders Bags as pretty, short or JSON output.
//   - internal/driver moves Bags between resolution, the disk cache and the CLI.
package diag
