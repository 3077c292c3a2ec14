// Package services provides the service registry for answerd.
//
// Build wires the knowledge store, matcher, collaborators, learning writer,
// resolver, hooks and the conversation session from a loaded configuration.
// The binaries use the accessor methods of the returned Registry.
package services
