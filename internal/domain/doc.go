// Package domain defines the core business types for the Beezify sync service.
//
// Types in this package are pure value objects: no database dependencies, no
// HTTP concerns. They are the shared language between the fetchers, the
// enricher, the repository, and the API handlers.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Pure helper methods are allowed
package domain
