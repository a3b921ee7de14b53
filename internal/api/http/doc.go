// Package http exposes the instance list over a JSON API.
//
// Routes:
//   - GET    /health
//   - GET    /api/instances              list (?format=json|yaml|toml)
//   - POST   /api/instances              adopt a directory of the root
//   - POST   /api/instances/reload       rescan the root
//   - GET    /api/instances/:id
//   - PATCH  /api/instances/:id          in-memory property edit
//   - GET    /api/instances/:id/usage    disk usage
//   - GET    /api/instances/:id/export   zip or tar.zst archive
//   - GET    /api/instances/:id/icon
//   - GET    /api/groups
//   - GET    /api/summary                (?sizes=true)
//
// Responses that depend on the list contents carry the list generation in
// the X-Instance-Generation header.
package http
