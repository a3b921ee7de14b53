package instance

import (
	"errors"
	"io/fs"
	"os"
	"sort"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// GroupFileFormatVersion is the only group file version understood
const GroupFileFormatVersion = 1

// GroupMap maps instance ids to group names
type GroupMap map[string]string

// ParseGroupFile reads the group assignments stored at path.
// It never fails: a missing file yields an empty map silently, and any
// malformed content yields an empty (or partial) map plus a warning.
func ParseGroupFile(path string, logger *zap.Logger) GroupMap {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to read group file", zap.String("path", path), zap.Error(err))
		}
		return GroupMap{}
	}

	return parseGroups(data, logger.With(zap.String("path", path)))
}

func parseGroups(data []byte, logger *zap.Logger) GroupMap {
	groups := GroupMap{}

	var doc interface{}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		logger.Warn("Failed to parse group file", zap.Error(err))
		return groups
	}

	root, ok := doc.(map[string]interface{})
	if !ok {
		logger.Warn("Invalid group file: root is not an object")
		return groups
	}

	version, ok := root["formatVersion"].(float64)
	if !ok || version != GroupFileFormatVersion {
		logger.Warn("Invalid group file: unsupported format version",
			zap.Any("formatVersion", root["formatVersion"]),
			zap.Int("expected", GroupFileFormatVersion),
		)
		return groups
	}

	groupsObj, ok := root["groups"].(map[string]interface{})
	if !ok {
		logger.Warn("Invalid group file: missing or invalid groups object")
		return groups
	}

	// Sorted so that an id listed by several groups resolves the same way every load
	names := make([]string, 0, len(groupsObj))
	for name := range groupsObj {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group, ok := groupsObj[name].(map[string]interface{})
		if !ok {
			logger.Warn("Skipping group: not an object", zap.String("group", name))
			continue
		}

		members, ok := group["instances"].([]interface{})
		if !ok {
			logger.Warn("Skipping group: missing or invalid instances array", zap.String("group", name))
			continue
		}

		for _, member := range members {
			if id, ok := member.(string); ok {
				groups[id] = name
			}
		}
	}

	return groups
}

// Members inverts the map into group name -> instance ids, ids sorted
func (g GroupMap) Members() map[string][]string {
	members := make(map[string][]string)
	for id, group := range g {
		members[group] = append(members[group], id)
	}
	for _, ids := range members {
		sort.Strings(ids)
	}
	return members
}
