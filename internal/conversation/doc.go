// Package conversation keeps the short rolling history of a session.
//
// The history is a fixed-capacity ring buffer of turns. It is never
// persisted and is only consulted as a hint: the matcher uses it to break
// ties in favor of the current topic and to resolve referential follow-ups
// such as "what about that".
package conversation
