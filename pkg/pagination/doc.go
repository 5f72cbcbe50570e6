// Package pagination walks page-numbered collection endpoints of the
// platform API and flattens them into a single record sequence.
//
// Pages are requested sequentially with page=1,2,... and a fixed per_page.
// The walk ends on the first short page (fewer items than per_page), on an
// empty page, or when a request fails after its retries. A failed walk still
// returns everything accumulated so far alongside an ErrPartial error, so a
// batch export degrades to partial data instead of aborting.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(platformClient, pagination.DefaultConfig())
//	items, err := fetcher.FetchAll(ctx, store, "orders/1001/line_items", nil)
//	if err != nil {
//		log.Warn().Err(err).Int("items", len(items)).Msg("partial line items")
//	}
//
// Response bodies may be a bare JSON array or an envelope object; see Items
// for the accepted shapes.
package pagination
