// Package assistant drives one conversation with the user: the greeting
// state machine (UNKNOWN, NAME_COLLECTION, IDENTIFIED), goodbye detection,
// and routing of identified utterances to the resolver.
//
// A Session processes one utterance at a time. Concurrent calls to Handle
// are serialized.
package assistant
