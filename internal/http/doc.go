// Package http exposes the lifecycle service over a chi router.
//
// Routes:
//   - PUT  /v2/content/{content_id}, GET /v2/content/{content_id}
//   - GET  /v2/content/{content_id}/history
//   - POST /v2/content/{content_id}/publish, /unpublish, /discard-draft, /redraft
//   - PATCH /v2/links/{content_id}, GET /v2/links/{content_id}
//   - PUT  /content/* (put content with links in one call)
//   - PUT  /paths/* (path reservation)
//
// /v2 routes require the X-Publishing-App header.
package http
