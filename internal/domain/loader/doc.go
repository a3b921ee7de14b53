// Package loader provides the default instance loader.
//
// CfgLoader reads an instance directory's instance.cfg, a flat key=value
// settings file, and turns it into a types.Instance. Directories whose
// InstanceType is not among the known types are reported as not being an
// instance. Settings files written by older releases in a Latin-1 code page
// are converted to UTF-8, and notes are reduced to plain text.
package loader
