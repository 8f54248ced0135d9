package history

import (
	"regexp"
	"strings"
)

// maxSignalsPerCategory caps each extracted category to bound summary size.
const maxSignalsPerCategory = 5

var (
	numberPattern = regexp.MustCompile(`\b\d+\.?\d*\b`)
	pathPattern   = regexp.MustCompile(`[/~][\w/.-]+`)
	ipPattern     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
)

// statusKeywords is the fixed vocabulary of status words worth surfacing.
var statusKeywords = []string{"success", "failed", "error", "warning", "complete", "running"}

// ExtractSignals pulls best-effort structured hints out of raw command
// output: numeric tokens, filesystem paths, IPv4-looking strings and status
// keywords, each capped at maxSignalsPerCategory items.
func ExtractSignals(output string) map[string][]string {
	if output == "" {
		return nil
	}

	signals := make(map[string][]string)

	if numbers := numberPattern.FindAllString(output, maxSignalsPerCategory); len(numbers) > 0 {
		signals["numbers"] = numbers
	}
	if paths := pathPattern.FindAllString(output, maxSignalsPerCategory); len(paths) > 0 {
		signals["paths"] = paths
	}
	if ips := ipPattern.FindAllString(output, maxSignalsPerCategory); len(ips) > 0 {
		signals["ips"] = ips
	}

	lower := strings.ToLower(output)
	var found []string
	for _, kw := range statusKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	if len(found) > 0 {
		if len(found) > maxSignalsPerCategory {
			found = found[:maxSignalsPerCategory]
		}
		signals["status_keywords"] = found
	}

	if len(signals) == 0 {
		return nil
	}
	return signals
}
