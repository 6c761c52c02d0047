// Package location builds ir.Location values from path strings and renders
// them back to paths.
//
// Equality between entries is decided by Location.URL, so every location the
// engine compares must come from the same Factory.
package location
