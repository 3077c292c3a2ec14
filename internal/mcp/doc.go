// Package mcp exposes the answer resolver over the Model Context Protocol.
//
// Tools:
//   - ask: answer a question through the conversation session
//   - teach: store an authored answer
//   - lookup: exact knowledge lookup without fallbacks
//   - knowledge_stats: store counts and persistence mode
//
// Answers and lookups are scrubbed for secrets before they are returned.
package mcp
