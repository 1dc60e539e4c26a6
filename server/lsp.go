// Package server implements the Arkaan language server. It reuses only the
// lexer and parser: diagnostics come from scan/parse errors, completions and
// hovers from the keyword and builtin tables.
package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/arkaan-lang/arkaan/compiler"
	"github.com/arkaan-lang/arkaan/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "arkaan-lsp"

// LspServer serves editor features for .ark documents over stdio.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI -> full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "Arkaan LSP geïnisialiseer")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With full sync, the last change event carries the whole text.
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	return Complete(text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	doc, ok := hoverDocs[word]
	if !ok {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: doc,
		},
	}, nil
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := Analyze(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// ---------------------------------------------------------------------------
// Analysis (pure; also exercised directly by tests)
// ---------------------------------------------------------------------------

// Analyze lexes and parses a document and returns its diagnostics: the first
// scan/parse error plus style warnings.
func Analyze(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	tokens, err := compiler.NewLexer(text).ScanTokens()
	if err != nil {
		if le, ok := err.(*compiler.LexError); ok {
			diagnostics = append(diagnostics, errorDiagnostic(le.Line, le.Message))
		} else {
			diagnostics = append(diagnostics, errorDiagnostic(1, err.Error()))
		}
		return diagnostics
	}

	if _, err := compiler.NewParser(tokens).Parse(); err != nil {
		if pe, ok := err.(*compiler.ParseError); ok {
			diagnostics = append(diagnostics, errorDiagnostic(pe.Line, fmt.Sprintf("verwag %s, maar het %s gekry", pe.Expected, pe.Found)))
		} else {
			diagnostics = append(diagnostics, errorDiagnostic(1, err.Error()))
		}
	}

	diagnostics = append(diagnostics, styleWarnings(tokens)...)
	return diagnostics
}

// styleWarnings flags deprecated or discouraged constructions.
func styleWarnings(tokens []compiler.Token) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for i, tok := range tokens {
		switch tok.Type {
		case compiler.TokenFunksie:
			d := tokenDiagnostic(tok, "Die 'funksie' sleutelwoord is verouderd - gebruik fn() uitdrukkings.")
			severity := protocol.DiagnosticSeverityWarning
			d.Severity = &severity
			diagnostics = append(diagnostics, d)

		case compiler.TokenAs:
			if i+1 < len(tokens) && tokens[i+1].Type == compiler.TokenLParen {
				d := tokenDiagnostic(tok, "Moenie hakies gebruik na 'as' nie. Skryf: as voorwaarde { ... }")
				severity := protocol.DiagnosticSeverityHint
				d.Severity = &severity
				diagnostics = append(diagnostics, d)
			}
		}
	}
	return diagnostics
}

// Complete returns completion items for a word prefix: keywords, builtins,
// and names bound with laat/stel/funksie/tipe in the document.
func Complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, snippet := range keywordSnippets {
		if !strings.HasPrefix(strings.ToLower(snippet.label), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		format := protocol.InsertTextFormatSnippet
		detail := snippet.detail
		insert := snippet.insert
		items = append(items, protocol.CompletionItem{
			Label:            snippet.label,
			Kind:             &kind,
			Detail:           &detail,
			InsertText:       &insert,
			InsertTextFormat: &format,
		})
	}

	// Plain keywords that have no snippet form.
	snippetLabels := make(map[string]bool)
	for _, snippet := range keywordSnippets {
		snippetLabels[snippet.label] = true
	}
	for _, name := range compiler.Keywords() {
		if snippetLabels[name] || !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := "sleutelwoord"
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	for _, name := range vm.BuiltinNames() {
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindFunction
		detail := "ingeboude funksie"
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	for _, name := range declaredNames(text) {
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindVariable
		detail := "binding"
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// declaredNames scans the token stream for laat/stel/funksie/tipe bindings.
func declaredNames(text string) []string {
	tokens, err := compiler.NewLexer(text).ScanTokens()
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for i := 0; i+1 < len(tokens); i++ {
		switch tokens[i].Type {
		case compiler.TokenLaat, compiler.TokenStel, compiler.TokenFunksie, compiler.TokenTipe:
			if tokens[i+1].Type == compiler.TokenIdentifier {
				add(tokens[i+1].Lexeme)
			}
		}
	}
	return names
}

// --- Diagnostic and text helpers ---

func errorDiagnostic(line int, message string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	zeroLine := protocol.UInteger(0)
	if line > 0 {
		zeroLine = protocol.UInteger(line - 1)
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: zeroLine, Character: 0},
			End:   protocol.Position{Line: zeroLine, Character: 200},
		},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

func tokenDiagnostic(tok compiler.Token, message string) protocol.Diagnostic {
	source := lspName
	line := protocol.UInteger(0)
	if tok.Pos.Line > 0 {
		line = protocol.UInteger(tok.Pos.Line - 1)
	}
	col := protocol.UInteger(0)
	if tok.Pos.Column > 0 {
		col = protocol.UInteger(tok.Pos.Column - 1)
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + protocol.UInteger(len(tok.Lexeme))},
		},
		Source:  &source,
		Message: message,
	}
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	end := col
	for end < len(line) {
		ch := rune(line[end])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			end++
		} else {
			break
		}
	}

	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
