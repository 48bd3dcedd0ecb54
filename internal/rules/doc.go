// Package rules is the conflict rule table: scope, exclusive, requires and
// cross-member rules as data, plus the evaluator that interprets them.
//
// Table order is evaluation order. Each rule yields at most one Violation
// per node, however many directives it names.
package rules
