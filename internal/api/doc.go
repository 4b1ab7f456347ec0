// Package api exposes the battle engine over HTTP with echo.
//
// Commands map onto the orchestrator registry under /api/v1/sessions. A
// failed command returns {"error": code, "message": text}: unknown sessions
// are 404, duplicate votes and votes for inactive sessions are 409, invalid
// input is 400. Everything else a session does is delivered as events on
// the websocket stream at /api/v1/sessions/:id/events, which also counts
// the connection as a viewer while it is open.
package api
