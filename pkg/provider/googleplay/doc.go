// Package googleplay implements the review and metadata provider for Google
// Play.
//
// Reviews are fetched through the batchexecute endpoint used by the Play web
// front. Each response carries a continuation token for the next page;
// tokens are cached per app, sort order, region and language so pages can be
// requested by index.
package googleplay
