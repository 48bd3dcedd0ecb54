// Package resolve turns a schema into layout plans and diagnostics.
//
// One pass visits every container in declaration order. For each node it
// filters directives by scope and repetition, evaluates the node rules, then
// parses values. A variant matched by id_pat is checked against its fields
// right after them. A container's cross-member rules run after its members,
// and only when nothing was reported for the container or any member. A plan is
// built for a container only if the whole subtree stayed clean; siblings are
// resolved either way.
//
// Resolution reads nothing but the schema and the static directive and rule
// tables, so independent schemas may be resolved concurrently.
package resolve
