// Package sim provides a simulated board: software models of the syscon
// sequencers, link, buses, identity registers and the WAKE and PERST lines
// connecting a host and an endpoint.
//
// Sequences have electrical side effects. On the endpoint, startup powers
// the endpoint and asserts WAKE, wake-release deasserts WAKE and shutdown
// powers it off. On the host, resume powers the root complex and asserts
// PERST, suspend deasserts PERST, powers the root complex off and clears
// the controller registers. The link trains when both sides are powered.
//
// System assembles a Board with both controllers and their interrupt
// front-ends, which is what the simulator shell and the end-to-end tests
// drive.
package sim
