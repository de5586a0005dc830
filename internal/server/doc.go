// Package server serves the task dashboard to browsers.
//
// Each signed-in browser gets a session holding its own dashboard engine.
// The browser shell forwards user events to the server, which applies them
// to the session's dashboard and answers with the newly committed view.
// Every commit, including those caused by background reloads, is also
// pushed to the session's websocket clients.
//
// # Endpoints
//
//   - POST /auth - Password authentication, returns a session token
//   - GET /api/view - The committed view and routing state
//   - POST /api/navigate - Route to a fragment (form field fragment)
//   - POST /api/filter - Set one filter (form fields key, value)
//   - POST /api/sort - Click a column header (form field key)
//   - POST /api/tab - Select a detail tab (form field tab)
//   - POST /api/reload - Reload the task feed
//   - GET /api/ws - Websocket stream of committed views
//   - POST /api/signout - Revoke the token and close its session
//   - GET /static/*, / - Embedded browser shell
//
// # Authentication
//
// The server uses password-based authentication with argon2id hashing.
// Clients POST their password to /auth and receive a token that must be
// sent as "Authorization: Bearer <token>". Websocket upgrades pass it as
// the token query parameter instead. Sign-in attempts are rate limited per
// client IP, and tokens expire after 24 hours, closing their session.
// Signing out revokes the token immediately.
package server
