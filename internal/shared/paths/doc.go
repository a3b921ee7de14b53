// Package paths provides standardized filesystem paths for the instance root.
//
// # Directory Structure
//
//	instances/
//	  ├── instgroups.json   (group assignments)
//	  ├── survival/
//	  │   └── instance.cfg  (marker + settings)
//	  └── creative/
//	      └── instance.cfg
//
// # Usage
//
//	root := paths.At("/srv/instances")
//	groups := root.GroupFile()           // /srv/instances/instgroups.json
//	marker := root.MarkerFile("survival") // /srv/instances/survival/instance.cfg
package paths
