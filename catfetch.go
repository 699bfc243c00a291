// Package catfetch provides an API configuration discovery and pagination
// engine for undocumented storefront backends. It observes the API traffic
// of a browser-rendered client to learn the real endpoint and parameter
// shape, searches candidate configurations until one returns the complete
// product catalog, caches the winning configuration per target, and drives
// pagination with retry until the catalog is exhausted.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency or concern (e.g., rod/, http/, sqlite/,
// discover/, paginate/).
package catfetch
