package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackList_Supported(t *testing.T) {
	list := TrackList{
		{LangCode: "en", Name: "English"},
		{LangCode: "tlh", Name: "Klingon"},
		{LangCode: "zh-TW", Name: "Chinese (Taiwan)"},
	}

	supported := list.Supported()

	assert.Len(t, supported, 2)
	assert.Equal(t, "en", supported[0].LangCode)
	assert.Equal(t, "zh-TW", supported[1].LangCode)
}

func TestTrackList_Langs_Deduplicates(t *testing.T) {
	list := TrackList{
		{LangCode: "en", Name: "English"},
		{LangCode: "en", Name: "English (auto)"},
		{LangCode: "ja", Name: "Japanese"},
	}

	assert.Equal(t, StringList{"en", "ja"}, list.Langs())
}

func TestStringList_Contains(t *testing.T) {
	langs := StringList{"en", "ja"}

	assert.True(t, langs.Contains("ja"))
	assert.False(t, langs.Contains("ko"))
	assert.False(t, StringList(nil).Contains("en"))
}

func TestMergeTracks(t *testing.T) {
	a := TrackList{{LangCode: "en"}, {LangCode: "ja"}}
	b := TrackList{{LangCode: "ja"}, {LangCode: "ko"}}

	merged := MergeTracks(a, b)

	assert.Equal(t, StringList{"en", "ja", "ko"}, merged.Langs())
}

func TestMergeTracks_Empty(t *testing.T) {
	assert.Empty(t, MergeTracks())
	assert.Empty(t, MergeTracks(nil, nil))
}
