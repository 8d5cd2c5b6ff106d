// Package prng provides the deterministic random source used to drive
// workload generation.
//
// A single 64-bit seed is expanded with splitmix64 into the four words of a
// xoshiro256++ generator. Sampler turns raw draws into unbiased bounded
// integers using the multiply-high-and-reject method, so a fixed seed always
// reproduces the same sequence of decisions, across processes and platforms.
//
// None of the types in this package are safe for concurrent use. Each run
// owns its own generator.
package prng
