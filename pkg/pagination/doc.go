// Package pagination walks OData server-driven paging chains.
//
// An OData service splits a large collection into pages. Each page except the
// last carries a next link ("__next" in verbose JSON, "odata.nextLink" in JSON
// light) that must be requested exactly as given. Because every link is only
// known once the previous page has arrived, the walk is strictly sequential.
//
// Example usage:
//
//	walker := pagination.NewWalker[Dokument](pagination.DefaultConfig(), logger)
//	items, err := walker.Walk(ctx, fetcher, firstURL)
//
// The walker:
//   - Requests the first link, then each next link in turn
//   - Concatenates items in page order
//   - Aborts on the first error without returning partial data
//   - Optionally fails with ErrMaxPagesExceeded after Config.MaxPages pages
//
// With MaxPages 0 a server whose next links cycle is followed until the
// context is cancelled.
package pagination
