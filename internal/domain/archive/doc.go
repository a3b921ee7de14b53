// Package archive provides filesystem tools over a single instance
// directory: disk usage, export to zip or zstd-compressed tar, and icon
// lookup.
package archive
