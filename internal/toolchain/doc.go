// Package toolchain drives the external Fuel toolchain: fuelup selects the
// active toolchain and forc reports its version and builds projects.
//
// The toolchain is treated as an opaque collaborator. Commands are run
// synchronously and only their exit status, their two output streams and the
// files they write are consumed.
//
// `fuelup default <name>` changes state shared by every process on the host
// that uses the same fuelup installation. Callers that switch toolchains from
// several goroutines or processes must hold a Lock across the
// switch -> version -> build -> read sequence.
package toolchain
