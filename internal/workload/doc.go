// Package workload drives a seeded random sequence of inserts, deletes and
// searches against an engine.Engine and verifies the result.
//
// A run is fully determined by its seed and operation count. The Driver
// keeps an oracle.Oracle in lockstep with the engine; after the last step a
// fresh transaction scans the engine and the scanned keys must equal the
// oracle's keys exactly.
//
// Engine failures are fatal and never retried. The only recovered condition
// is an Insert that keeps drawing keys already present, which gives up after
// a bounded number of redraws and abandons the step.
package workload
