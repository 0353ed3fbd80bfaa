package models

import "strings"

// Category is one entry of the fixed document catalog.
type Category struct {
	Key         string `json:"key"`
	Slug        string `json:"slug"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// DefaultCategoryKey is always shown on the home screen, even when empty.
const DefaultCategoryKey = "siaran_pers"

var categories = []Category{
	{Key: "siaran_pers", Label: "Siaran Pers", Icon: "📰", Description: "Dokumen siaran pers resmi"},
	{Key: "laporan_bulanan", Label: "Laporan Bulanan", Icon: "📊", Description: "Laporan kegiatan bulanan"},
	{Key: "info_pegawai", Label: "Info Pegawai", Icon: "👥", Description: "Informasi dan kebijakan kepegawaian"},
	{Key: "arsip", Label: "Arsip", Icon: "📂", Description: "Dokumen arsip dan referensi"},
}

func init() {
	for i := range categories {
		categories[i].Slug = KeyToSlug(categories[i].Key)
	}
}

// Categories returns the catalog in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// LookupCategory finds a category by its storage key.
func LookupCategory(key string) (Category, bool) {
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryFromSlug resolves a URL slug such as "siaran-pers".
func CategoryFromSlug(slug string) (Category, bool) {
	return LookupCategory(SlugToKey(slug))
}

// SlugToKey converts "siaran-pers" to "siaran_pers".
func SlugToKey(slug string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(slug)), "-", "_")
}

// KeyToSlug converts "siaran_pers" to "siaran-pers".
func KeyToSlug(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the Indonesian month label, or "" when m is outside 1..12.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}
