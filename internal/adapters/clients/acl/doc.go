// Package acl translates external catalogue payloads into domain books.
//
// External DTOs stay unexported inside this package. Adapters map every
// failure into a domain error:
//
//   - unknown ISBN (empty payload or 404) → [domain.ErrNotFound]
//   - 5xx, transport failure, open circuit, rate limit → [domain.ErrUnavailable]
//   - a record too incomplete to form a Book → [domain.ErrValidation]
package acl
