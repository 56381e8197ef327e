// Package domain models shipping lanes derived from customer lane files.
//
// # Input Files
//
// A lane file is a CSV (or XLSX sheet) with a header row. Each data row names
// an origin ZIP, a destination ZIP and usually a customer. Real files arrive
// from many sources, so headers are matched by alias rather than position.
// Headers are canonicalized first (trimmed, lowercased, non-alphanumerics
// removed), so "Origin Zip", "origin_zip" and "ORIGIN-ZIP" all become
// "originzip". See [CanonicalizeHeader] and [OriginAliases].
//
// # ZIP Conventions
//
// Postal codes are normalized before any lookup:
//
//	"12345-6789" → "12345"  (ZIP+4 is truncated)
//	"1234"       → "01234"  (spreadsheets strip the leading zero of
//	                         Northeast ZIPs, e.g. 02134 Boston)
//	"123"        → ""       (invalid)
//
// Non-digit characters are discarded before the first five digits are kept,
// so a 5-digit numeric cell like 60035.0 exported from Excel normalizes to
// "60035". A 4-digit numeric cell such as 2134.0 does not recover its
// leading zero ("21340"); format such columns as text before exporting.
//
// # Resolution
//
// A normalized ZIP resolves to coordinates in this order: the merged
// reference dataset, ZIPs already resolved during the current load, and
// finally an optional online [Geocoder]. An unresolved ZIP never produces a
// partial lane; the row is dropped and the ZIP reported in
// [Dataset.InvalidZips].
//
// # Geometry
//
// Coordinates are [orb.Point] values in (lon, lat) order. Bearing is the
// initial great-circle azimuth in degrees clockwise from north, in [0, 360).
// The lane midpoint is the arithmetic mean of the endpoints, which is only a
// planar approximation but is what the map labels are anchored on.
//
// # Lane IDs
//
// Lane IDs are "{origin}-{destination}-{row}" where row is the zero-based
// data row index. Two rows with the same ZIP pair therefore stay distinct, and
// reprocessing the same file yields the same IDs.
package domain
