package streamlink

import "strings"

// qualityChains maps a requested resolution to the priority-ordered fallback
// list handed to streamlink, which picks the first available match.
var qualityChains = map[string]string{
	"1080p": "1080p,1080p60,best",
	"720p":  "720p,720p60,1080p,best",
	"480p":  "480p,720p,best",
	"360p":  "360p,480p,720p,best",
	"best":  "best",
}

// QualityChain resolves a resolution name to its fallback chain. Unknown
// values degrade to "best".
func QualityChain(resolution string) string {
	if chain, ok := qualityChains[strings.ToLower(strings.TrimSpace(resolution))]; ok {
		return chain
	}
	return "best"
}

// KnownResolutions lists the resolution names QualityChain understands.
func KnownResolutions() []string {
	return []string{"1080p", "720p", "480p", "360p", "best"}
}
