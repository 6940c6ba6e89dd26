package domain

// Track describes one language-tagged subtitle or audio stream offered by the
// source. Name is the human-readable label reported by the extractor.
type Track struct {
	LangCode string `json:"lang_code"`
	Name     string `json:"name,omitempty"`
}

// TrackList is a serializable list of tracks
type TrackList []Track

// StringList is a serializable list of language codes
type StringList []string

// supportedLangs are the languages offered for subtitle/audio selection.
// Tracks outside this set are ignored when deciding whether to prompt.
var supportedLangs = map[string]struct{}{
	"en":      {},
	"zh-TW":   {},
	"zh-CN":   {},
	"zh-Hant": {},
	"zh-Hans": {},
	"ja":      {},
	"ko":      {},
	"es":      {},
	"fr":      {},
	"de":      {},
}

// IsSupportedLang reports whether a language code participates in selection
func IsSupportedLang(code string) bool {
	_, ok := supportedLangs[code]
	return ok
}

// Supported filters the list down to tracks in supported languages
func (l TrackList) Supported() TrackList {
	var out TrackList
	for _, t := range l {
		if IsSupportedLang(t.LangCode) {
			out = append(out, t)
		}
	}
	return out
}

// Langs returns the distinct language codes present in the list
func (l TrackList) Langs() StringList {
	seen := make(map[string]struct{}, len(l))
	var out StringList
	for _, t := range l {
		if _, ok := seen[t.LangCode]; ok {
			continue
		}
		seen[t.LangCode] = struct{}{}
		out = append(out, t.LangCode)
	}
	return out
}

// Contains reports whether the list holds the given language code
func (l StringList) Contains(code string) bool {
	for _, c := range l {
		if c == code {
			return true
		}
	}
	return false
}

// MergeTracks unions track lists by language code, preserving first-seen
// order. Used to offer one selection for a whole playlist batch.
func MergeTracks(lists ...TrackList) TrackList {
	seen := make(map[string]struct{})
	var out TrackList
	for _, list := range lists {
		for _, t := range list {
			if _, ok := seen[t.LangCode]; ok {
				continue
			}
			seen[t.LangCode] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
