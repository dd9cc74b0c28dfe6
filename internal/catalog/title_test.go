package catalog

import "testing"

func TestExtractModel(t *testing.T) {
	testCases := []struct {
		name       string
		note       string
		want       string
		wantMethod ModelMethod
	}{
		{name: "model before load index", note: "SL-6 106/104 N ( C C A 70dB )", want: "SL-6", wantMethod: ModelLeadingRun},
		{name: "another commercial tyre", note: "CW-25 112/110 R ( C C B 72dB )", want: "CW-25", wantMethod: ModelLeadingRun},
		{name: "multi word model before size", note: "ADVANTEX SUV TR259 215/70R16", want: "ADVANTEX SUV TR259", wantMethod: ModelLeadingRun},
		{name: "whole note is the model", note: "  Winter Pro  ", want: "Winter Pro", wantMethod: ModelLeadingRun},
		{name: "trailing separators trimmed", note: "ECO-/ 91V", want: "ECO", wantMethod: ModelLeadingRun},
		{name: "unicode model before paren", note: "Ėco Ž 195 (X)", want: "Ėco Ž", wantMethod: ModelBeforeParen},
		{name: "word fallback", note: "( A ) Foo Bar Baz Qux", want: "A Foo Bar", wantMethod: ModelWords},
		{name: "word fallback stops at size", note: "(x) 205/55 Rain", want: "(x)", wantMethod: ModelWords},
		{name: "empty", note: "   ", want: "", wantMethod: ModelNone},
		{name: "numbers only", note: "(205/55)", want: "", wantMethod: ModelNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, method := ExtractModel(tc.note)
			if got != tc.want {
				t.Errorf("ExtractModel(%q) = %q, want %q", tc.note, got, tc.want)
			}
			if method != tc.wantMethod {
				t.Errorf("ExtractModel(%q) method = %d, want %d", tc.note, method, tc.wantMethod)
			}
		})
	}
}

func TestBuildTitle(t *testing.T) {
	testCases := []struct {
		name     string
		producer string
		model    string
		feedName string
		sku      string
		want     string
	}{
		{name: "producer and model", producer: "Sailun", model: "SL-6", want: "Sailun SL-6"},
		{name: "producer only", producer: "Acme", feedName: "Tyre", want: "Acme"},
		{name: "model only", model: "SL-6", feedName: "Tyre", want: "SL-6"},
		{name: "feed name", feedName: "Some tyre", sku: "1", want: "Some tyre"},
		{name: "placeholder", sku: "1001", want: "Product 1001"},
		{name: "whitespace producer", producer: "  ", model: "X1", want: "X1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildTitle(tc.producer, tc.model, tc.feedName, tc.sku); got != tc.want {
				t.Errorf("BuildTitle() = %q, want %q", got, tc.want)
			}
		})
	}
}
