// Package programs holds small user programs that exercise fork, copy on
// write and IPC end to end. Each is looked up by name and booted as a
// first env; its output goes to a Console, which keeps every line and
// fans new ones out to subscribers such as the WebSocket stream.
package programs
