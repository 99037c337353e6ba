package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shanehull/annwatch/internal/types"
)

func anns(titles ...string) []types.Announcement {
	out := make([]types.Announcement, 0, len(titles))
	for _, t := range titles {
		out = append(out, types.Announcement{Title: t})
	}
	return out
}

func TestFilter(t *testing.T) {
	items := anns(
		"Araştırma Görevlisi Alınacaktır",
		"ÖĞRETİM ÜYESİ ALINACAKTIR",
		"Bahar Dönemi Final Takvimi",
		"Öğrenci alınacaktır.",
	)

	m := New([]string{"alınacaktır"}, "tr")

	assert.Equal(t, anns(
		"Araştırma Görevlisi Alınacaktır",
		"ÖĞRETİM ÜYESİ ALINACAKTIR",
		"Öğrenci alınacaktır.",
	), m.Filter(items))
}

func TestFilterNoMatch(t *testing.T) {
	m := New([]string{"alınacaktır"}, "tr")
	assert.Empty(t, m.Filter(anns("C")))
}

func TestFilterEmptyKeywordsIsIdentity(t *testing.T) {
	items := anns("A", "B")

	assert.Equal(t, items, New(nil, "tr").Filter(items))
	assert.Equal(t, items, New([]string{" ", ""}, "tr").Filter(items))
}

func TestFilterIdempotent(t *testing.T) {
	items := anns("Staj ilanı", "STAJ", "Burs sonuçları", "Kayıt yenileme", "İlan: burs")
	m := New([]string{"staj", "burs"}, "tr")

	once := m.Filter(items)
	assert.Equal(t, once, m.Filter(once))
	assert.Len(t, once, 4)
}

func TestTurkishDottedI(t *testing.T) {
	m := New([]string{"ilan"}, "tr")
	assert.Equal(t, []string{"ilan"}, m.Found("YENİ İLAN"))

	// Without Turkish rules the dotless I in ILAN does not fold to i.
	assert.Empty(t, New([]string{"ilan"}, "tr").Found("ILAN"))
	assert.Equal(t, []string{"ilan"}, New([]string{"ilan"}, "en").Found("ILAN"))
}

func TestMatchReportsKeywords(t *testing.T) {
	m := New([]string{"staj", "burs"}, "tr")

	got := m.Match(anns("Staj ve burs başvuruları", "Final takvimi", "Burs"))

	assert.Equal(t, []types.Match{
		{Announcement: types.Announcement{Title: "Staj ve burs başvuruları"}, KeywordsFound: []string{"staj", "burs"}},
		{Announcement: types.Announcement{Title: "Burs"}, KeywordsFound: []string{"burs"}},
	}, got)
}

func TestBadLanguageFallsBack(t *testing.T) {
	m := New([]string{"Exam"}, "not-a-language-tag-!!")
	assert.Equal(t, []string{"Exam"}, m.Found("FINAL EXAM SCHEDULE"))
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"alınacaktır", "burs ilanı"}, ParseKeywords(" alınacaktır ,, burs ilanı ,"))
	assert.Nil(t, ParseKeywords(" , "))
}
