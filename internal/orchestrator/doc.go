// Package orchestrator runs battle sessions.
//
// A [Registry] owns every live session in the process. Callers create a
// session, start it, and may end it early; starting hands the session to a
// scheduler goroutine that plays the turns in order:
//
//	generate -> compliance gate -> append -> turn_generated
//	         -> synthesize -> audio_ready -> checkpoint -> pace
//
// Rounds are bracketed by round_start and round_end, and every session emits
// exactly one session_end, whether it ran to completion, was force-ended, or
// was aborted by a fault in its scheduler.
//
// # Failure Handling
//
// Collaborator failures never fail a session. A generation error or timeout
// is replaced by a fallback verse, an audio failure leaves the turn without
// an audio reference, and persistence is best-effort. A panic inside a
// scheduler is recovered; the session completes degraded and no other
// session is affected.
//
// # Cancellation
//
// [Registry.End] is cooperative: it raises a flag and closes the session's
// done channel. Pacing waits return immediately, in-flight collaborator
// calls run to their own timeout, and the scheduler observes the flag at the
// next turn or round boundary.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. At most one scheduler
// goroutine runs per session id.
package orchestrator
