// Package main is a command line tool that prints the instance list.
//
// By default it scans the configured instance root itself, exactly as the
// server does on startup. With --server it asks a running server instead.
//
// Usage:
//
//	# Scan ./instances and print JSON
//	./instlist
//
//	# Scan another root with a group file, print YAML
//	./instlist --dir /srv/instances --groups /srv/instgroups.json -f yaml
//
//	# Ask a running server
//	./instlist --server http://localhost:8075 -f toml
package main
