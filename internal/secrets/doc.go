// Package secrets detects and redacts credentials in user input.
//
// Utterances are scrubbed before they are forwarded to a generative provider,
// and an exchange that contains a secret is never written to the knowledge
// file. Findings record rule IDs and positions, never the matched value.
package secrets
