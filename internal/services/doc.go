// Package services talks to the remote music catalog.
//
// # Catalog
//
// [Catalog] is the abstraction the resolver and playlist controller depend on: search plus stream URL,
// cover and lyric lookups, all keyed by a [models.Source] backend and opaque catalog ids.
//
// [CatalogService] implements it over the public HTTP API. Every call is a GET against one endpoint,
// with the operation selected by the "types" parameter (search, url, pic, lyric). Calls share a
// sliding-window [Budget] sized from the [catalog] config section; a call made while the window is full
// fails immediately with [shared.ErrRateLimited] and never reaches the network. Transport failures and non-2xx replies
// are [shared.ErrNetwork]; empty lookups are [shared.ErrNotFound].
//
// Catalog JSON is loose: ids may be numbers or strings and artists a string or a list. The
// [models.FlexString], [models.Artists] and [models.Number] types absorb that.
//
// # Raw API
//
// [APIService] sends unbudgeted GETs with arbitrary parameters and returns the response untouched.
// It backs the "api get" debugging command.
package services
