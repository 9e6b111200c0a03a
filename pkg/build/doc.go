// Package build describes FPGA boards and drives vendor toolchains for them.
//
// A board declares its I/O as resources (named, numbered groups of pins with
// I/O attributes and optional clocks) and connectors (headers whose positions
// map to package pins). Designs request resources by name and number through
// a ResourceManager and receive ports whose signals are wired into a
// generated top-level Verilog wrapper.
//
// # Pin lists
//
// Pin lists are whitespace separated package pins. A position may be "-" for
// an unconnected pin or reference a connector as "<name>_<number>:<key>", for
// example "p_4:1". Connector references are checked when resources are added,
// so connectors must be registered first.
//
// # Building
//
// Build elaborates a Design on a Platform, asks the platform for a Plan
// (toolchain scripts plus the generated sources), and executes it in a build
// directory. Plans carry an xxhash digest; an unchanged plan is not run
// again. Overrides customize the toolchain scripts and may be replaced at run
// time through OTF_<key> environment variables.
package build
