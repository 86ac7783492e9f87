// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package hdl provides the necessary tools to describe synchronous digital
logic in Go and elaborate it into a flat intermediate representation.

A design is written against the Module builder: statements are appended to
per-clock-domain sinks, and structured control flow (If/Elif/Else chains,
Switch/Case blocks, finite state machines) lowers into priority-ordered
Switch statements. Designs compose through the Elaboratable interface;
elaboration produces a tree of Fragments which Prepare resolves into a
form ready for a backend, propagating clock domains through the
hierarchy, flattening it around driver conflicts, inserting resets, and
inferring the port list of every level.

Foreign primitives are described with Instance; they pass through the
pipeline untouched.
*/
package hdl
