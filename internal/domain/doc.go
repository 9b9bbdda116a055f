// Package domain holds the pure computational core of the incident analytics
// service: record types, the great-circle distance calculator, the
// aggregation engine, and the hotspot and proximity rankers.
//
// # Records
//
// Incident and facility records are owned by the external store; this package
// only ever reads copies. Every incident belongs to exactly one region and
// carries exactly one severity and one status, so the per-region critical and
// resolved counters are independent projections over the same record set:
// each is individually bounded by the total, but their sum is not (a record
// can be both critical and resolved).
//
// # Aggregation
//
// Aggregates are recomputed from a snapshot on every call and never mutated
// in place. Grouping keys absent from the input never appear in the output;
// there is no zero-filling of empty groups. The trailing 30-day recency
// window is measured from a caller-supplied instant captured once per call,
// so a fixed input and a fixed "now" always reproduce the same counts.
//
// # Ranking
//
// Ranking keys with equal values are tie-broken by name ascending. This is a
// designed invariant: it makes every ranked listing reproducible across runs
// regardless of input order.
//
// All functions in this package are pure and safe for concurrent use.
package domain
