package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestAnalyzeCleanSource(t *testing.T) {
	diagnostics := Analyze("laat x = 5\ndruk(x + 1)\n")
	if len(diagnostics) != 0 {
		t.Errorf("clean source produced diagnostics: %v", diagnostics)
	}
}

func TestAnalyzeLexError(t *testing.T) {
	diagnostics := Analyze("laat x = @\n")
	if len(diagnostics) == 0 {
		t.Fatal("lex error produced no diagnostics")
	}
	d := diagnostics[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Error("lex error is not an error-severity diagnostic")
	}
	if d.Range.Start.Line != 0 {
		t.Errorf("diagnostic line = %d, want 0", d.Range.Start.Line)
	}
}

func TestAnalyzeParseError(t *testing.T) {
	diagnostics := Analyze("laat x = 1\nlaat = 2\n")
	if len(diagnostics) == 0 {
		t.Fatal("parse error produced no diagnostics")
	}
	d := diagnostics[0]
	if d.Range.Start.Line != 1 {
		t.Errorf("diagnostic on line %d, want 1 (0-based)", d.Range.Start.Line)
	}
	if !strings.Contains(d.Message, "verwag") {
		t.Errorf("message = %q", d.Message)
	}
}

func TestAnalyzeDeprecatedFunksie(t *testing.T) {
	diagnostics := Analyze("funksie f(x) { gee x }\n")
	var found bool
	for _, d := range diagnostics {
		if strings.Contains(d.Message, "verouderd") {
			found = true
			if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityWarning {
				t.Error("deprecation is not a warning")
			}
		}
	}
	if !found {
		t.Error("funksie keyword produced no deprecation warning")
	}
}

func TestAnalyzeParenAfterAsHint(t *testing.T) {
	diagnostics := Analyze("as (1 > 0) { druk(1) }\n")
	var found bool
	for _, d := range diagnostics {
		if strings.Contains(d.Message, "hakies") {
			found = true
			if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityHint {
				t.Error("paren style nit is not a hint")
			}
		}
	}
	if !found {
		t.Error("parenthesized as condition produced no hint")
	}
}

func TestCompleteKeywords(t *testing.T) {
	items := Complete("", "la")
	if !hasLabel(items, "laat") {
		t.Errorf("completing 'la' misses laat: %v", labels(items))
	}

	items = Complete("", "pa")
	if !hasLabel(items, "pas") {
		t.Errorf("completing 'pa' misses pas: %v", labels(items))
	}
}

func TestCompleteBuiltins(t *testing.T) {
	items := Complete("", "ka")
	if !hasLabel(items, "kaart") {
		t.Errorf("completing 'ka' misses kaart: %v", labels(items))
	}

	items = Complete("", "v")
	for _, want := range []string{"voeg_by", "vou", "vir_elk"} {
		if !hasLabel(items, want) {
			t.Errorf("completing 'v' misses %s: %v", want, labels(items))
		}
	}
}

func TestCompleteDeclaredNames(t *testing.T) {
	text := "laat telling = 1\nstel totaal = 0\nfunksie verwerk(x) { gee x }\ntipe Opsie { Niks }\n"
	items := Complete(text, "t")
	for _, want := range []string{"telling", "totaal", "terwyl", "tipe"} {
		if !hasLabel(items, want) {
			t.Errorf("completing 't' misses %s: %v", want, labels(items))
		}
	}

	items = Complete(text, "verw")
	if !hasLabel(items, "verwerk") {
		t.Errorf("completing 'verw' misses verwerk: %v", labels(items))
	}

	items = Complete(text, "Ops")
	if !hasLabel(items, "Opsie") {
		t.Errorf("completing 'Ops' misses Opsie: %v", labels(items))
	}
}

func TestCompleteEmptyPrefixListsEverything(t *testing.T) {
	items := Complete("", "")
	if len(items) == 0 {
		t.Fatal("empty prefix returned nothing")
	}
	if len(items) > 100 {
		t.Errorf("completion list not capped: %d items", len(items))
	}
}

func TestHoverDocsCoverKeywordsAndBuiltins(t *testing.T) {
	for _, word := range []string{
		"laat", "stel", "fn", "funksie", "gee", "as", "anders", "terwyl",
		"pas", "geval", "tipe", "waar", "vals", "nil",
		"druk", "lengte", "kop", "stert", "leeg", "voeg_by", "heg_aan",
		"ketting", "omgekeer", "kaart", "filter", "vou", "vir_elk",
	} {
		if _, ok := hoverDocs[word]; !ok {
			t.Errorf("no hover doc for %q", word)
		}
	}
}

func TestExtractWordAndPrefix(t *testing.T) {
	text := "laat telling = kaart(lys, fn(x) x)"

	if got := extractWord(text, protocol.Position{Line: 0, Character: 7}); got != "telling" {
		t.Errorf("extractWord = %q, want telling", got)
	}
	if got := extractPrefix(text, protocol.Position{Line: 0, Character: 9}); got != "tell" {
		t.Errorf("extractPrefix = %q, want tell", got)
	}
	if got := extractWord(text, protocol.Position{Line: 5, Character: 0}); got != "" {
		t.Errorf("out-of-range extractWord = %q, want empty", got)
	}
}

func hasLabel(items []protocol.CompletionItem, label string) bool {
	for _, item := range items {
		if item.Label == label {
			return true
		}
	}
	return false
}

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Label
	}
	return out
}
