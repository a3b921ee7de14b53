// Package utils validates user-supplied instance properties before they
// reach the instance list.
package utils
