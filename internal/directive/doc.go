// Package directive is the directive model: the fixed set of recognised
// directive keys, the scopes (enum/struct container, variant/field member) each
// one is legal in, and the grammar of its value.
//
// The tables are immutable after package initialisation and are shared by
// every resolution without locking.
package directive
