// Package hooks provides lifecycle hook management for answerd sessions.
//
// Supports session_start, session_end, identified, learned and
// store_degraded events. The hooks file also controls the welcome-back
// greeting, learning announcements and how often answers are personalized.
package hooks
