// Package resolver implements the in-memory resource cache engine. It maps an
// origin URL to a single cache entry (body + content type + optional ETag) and
// decides per call whether to serve the entry as-is, revalidate it with a
// conditional request, or fetch the origin unconditionally. Entries live for a
// fixed TTL and survive failed refresh attempts untouched, so the HTTP layer
// can keep serving stale content instead of erroring. Concurrent non-forced
// fetches for one URL are collapsed into a single origin request.
package resolver
