// Package export writes finished runs to image and JSON files.
package export
