// Package dynamics implements the gain-reduction engine of a dynamic-range
// compressor.
//
// Each sample flows through three stages:
//   - Solver: static transfer curve. Maps an input level in dB to the ideal
//     reduction in dB (hard knee or quadratic soft knee).
//   - Curve: envelope smoothing with separate attack and release laws.
//   - Device model: optional hardware emulation. Ideal (pass-through),
//     Optical (photocell with level-dependent time constants and a soft
//     tracking limiter) or VCA (RMS detector).
//
// Compressor composes the stages and adds bypass, sidechain detection and
// makeup gain. The sample path does not allocate, block or lock; all
// configuration is expected to change only between processing calls.
//
// Build with -tags fastmath to replace the standard library logarithm and
// exponential on the sample path with algo-approx approximations.
package dynamics
