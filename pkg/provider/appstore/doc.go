// Package appstore implements the review and metadata provider for the Apple
// App Store.
//
// Reviews come from the public customer reviews feed, which serves at most
// ten pages per app and sort order. Bundle identifiers are resolved to
// numeric track ids through the lookup service and cached.
package appstore
