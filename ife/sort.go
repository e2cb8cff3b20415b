package ife

import (
	"sort"

	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// sortedKeys returns a map's string keys in sorted order, so two encodes
// of the same attribute set produce byte-identical output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedImageKeys(m map[string]AssociatedImageEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAnnotationKeys(m map[iris.AnnotationIdentifier]AnnotationEntry) []iris.AnnotationIdentifier {
	keys := make([]iris.AnnotationIdentifier, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortStrings(s []string) {
	sort.Strings(s)
}

func sortAnnotationIDs(ids []iris.AnnotationIdentifier) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
