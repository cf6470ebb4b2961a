// Package provider defines the storefront capability used by the scraper.
//
// The scraper only depends on these interfaces. The googleplay and appstore
// subpackages implement them over HTTP; tests use in-memory fakes.
package provider
