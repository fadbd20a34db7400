// Package main hosts the moviepilot CLI entrypoint and command graph.
//
// Commands resolve the configuration once, then either talk to the running
// daemon over its unix socket or, for commands that make sense offline,
// read local state directly. The daemon itself runs behind the hidden
// `daemon` command.
package main
