// Package logging provides structured logging for the cypher battle engine.
//
// It wraps Go's log/slog to emit JSON lines that carry the battle context
// (session id, round, participant) so a single battle can be followed through
// the scheduler, the compliance gate, and the persistence gateway.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/cypher", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	sessionLog := logger.WithSession(sess.ID)
//	sessionLog.WithRound(2).WithParticipant("mc-a").Warn("generation fell back", "error", err)
//
// Pass an empty directory to write to stderr. Use [NopLogger] in tests.
package logging
