package errlog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

func marshalIndent(bundle reportBundle) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("errlog: marshaling report: %w", err)
	}
	return string(data), nil
}

func renderText(bundle reportBundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diagnostic report (app_version=%s)\n", bundle.AppVersion)
	fmt.Fprintf(&b, "total: %d\n", bundle.TotalCount)

	fmt.Fprintln(&b, "by level:")
	for _, level := range sortedKeys(bundle.ByLevel) {
		fmt.Fprintf(&b, "  %s: %d\n", level, bundle.ByLevel[level])
	}

	fmt.Fprintln(&b, "by source:")
	for _, source := range sortedKeys(bundle.BySource) {
		fmt.Fprintf(&b, "  %s: %d\n", source, bundle.BySource[source])
	}

	fmt.Fprintln(&b, "recent:")
	for _, e := range bundle.Recent {
		fmt.Fprintf(&b, "  [%s] %s %s: %s\n", e.Timestamp.Format("15:04:05"), e.Level, e.Source, e.Message)
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
