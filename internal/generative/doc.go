// Package generative is the generative fallback collaborator: an opaque
// text-completion backend reached through langchaingo.
//
// Generators are rate limited and retry transient failures with exponential
// backoff. Callers are expected to bound every Generate call with a context
// deadline; this package never decides on its own how long a user waits.
package generative
