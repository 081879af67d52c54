// Package core provides the business logic of talkshelf: the talk catalog,
// its CSV/JSON import pipeline and the duplicate-safe merge into storage.
//
// The package has no transport dependencies. The web server, the talkctl
// CLI, the import inbox and the sync scheduler all drive the same [Service].
//
// # Storage
//
// Data lives in two [Bucket]s. The local bucket holds the talk list, the
// popup selection and import history; the synced bucket holds the Sessionize
// URL and custom fields. [TalkStore] decodes every value explicitly and fills
// defaults, so a record written by an older version reads back complete.
//
// # Import Pipeline
//
//  1. The payload is cleaned (BOM removed, invalid UTF-8 replaced) by [ReadUpload].
//  2. A registered [Format] decodes it into a [Batch]: [ParseCSV] plus
//     [ValidateHeader] and [NormalizeRow] for CSV, [NormalizeAPITalk] for JSON.
//  3. [Merge] appends talks whose title is not already stored.
//  4. The merged list is written in one call and an [ImportRecord] is appended
//     to the history.
//
// A header mismatch or malformed JSON aborts before step 3, so a rejected
// file never changes stored data.
//
// # Concurrency
//
// Read-modify-write sequences on the talk list run under a service mutex.
// [ImportLimiter] bounds how many imports decode at once, and concurrent
// Sessionize fetches of the same URL share one HTTP request.
//
// # Error Handling
//
// Failures are sentinel errors wrapped with context. [MapError] turns them
// into a message, an action and a support code:
//
//   - STO001: storage failures
//   - FILE001-FILE007: rejected import files
//   - VAL001, VAL003, VAL007: validation
//   - TALK001: unknown talk
//   - FETCH001-FETCH004: Sessionize failures
//   - UPL002-UPL005: busy, cancelled or timed out imports
package core
