// Package models defines persisted entities and the repository contract used by the repositories package.
//
//   - [Download] : one download request from a chat user, from submission to its terminal status
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
