package catalog

import "testing"

func TestFormatAttributeValue(t *testing.T) {
	testCases := []struct {
		key   string
		value string
		want  string
	}{
		{key: AttrWidth, value: "205", want: "205mm"},
		{key: AttrWidth, value: "205/55", want: "205/55"},
		{key: AttrDiameter, value: "R16", want: "16″"},
		{key: AttrDiameter, value: "17.5", want: "17.5″"},
		{key: AttrDiameter, value: "ZR17", want: "ZR17"},
		{key: AttrTireSeason, value: "Winter", want: "Žieminės"},
		{key: AttrTireSeason, value: "All-Season", want: "Universalios"},
		{key: AttrTireSeason, value: "Vasarinė", want: "Vasarinės"},
		{key: AttrTireSeason, value: "Unknown", want: "Unknown"},
		{key: "load_index", value: "106/104", want: "106/104"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"/"+tc.value, func(t *testing.T) {
			if got := FormatAttributeValue(tc.key, tc.value); got != tc.want {
				t.Errorf("FormatAttributeValue(%q, %q) = %q, want %q", tc.key, tc.value, got, tc.want)
			}
		})
	}
}

func TestCategorySlug(t *testing.T) {
	if slug, ok := CategorySlug("10000002323"); !ok || slug != "winter-tires-friction" {
		t.Errorf("CategorySlug() = %q, %v", slug, ok)
	}
	if _, ok := CategorySlug("42"); ok {
		t.Error("unmapped group id should not resolve")
	}
	slugs := CategorySlugs()
	if len(slugs) != 6 {
		t.Errorf("CategorySlugs() = %v, want 6 distinct slugs", slugs)
	}
}

func TestSlugify(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "Žieminės", want: "ziemines"},
		{in: "205/55 R16", want: "205-55-r16"},
		{in: "16″", want: "16"},
		{in: "  Hello  World ", want: "hello-world"},
		{in: "Sailun", want: "sailun"},
		{in: "″", want: ""},
	}
	for _, tc := range testCases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := HumanizeSlug("summer-tires-pv"); got != "Summer Tires Pv" {
		t.Errorf("HumanizeSlug() = %q", got)
	}
}
