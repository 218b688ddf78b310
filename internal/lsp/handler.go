package lsp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"reserveguard/internal/analysis"
	"reserveguard/internal/ir"
)

var log = commonlog.GetLogger("reserveguard.lsp")

// SemanticTokenTypes is the legend advertised to clients
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"string",
	"comment",
	"operator",
	"modifier",
}

var SemanticTokenModifiers = []string{
	"declaration",
	"readonly",
}

// document is the last analyzed state of an open file
type document struct {
	content     string
	findings    []*analysis.Finding
	diagnostics []protocol.Diagnostic
}

// Handler implements the LSP server for .rg contract models
type Handler struct {
	mu      sync.RWMutex
	docs    map[string]*document
	engine  *analysis.Engine
	version string
}

func NewHandler(engine *analysis.Engine, version string) *Handler {
	return &Handler{
		docs:    make(map[string]*document),
		engine:  engine,
		version: version,
	}
}

// Initialize advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    "reserveguard",
			Version: &h.version,
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen analyzes the opened document and publishes its diagnostics
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Debugf("opened %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange re-analyzes the document from the last full-text change.
// Incremental changes are ignored since the server only advertises full sync.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed %s", params.TextDocument.URI)

	var text string
	found := false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, found = c.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			text, found = c.Text, true
		}
	}
	if !found {
		return nil
	}
	return h.update(ctx, params.TextDocument.URI, text)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Debugf("closed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.docs, path)
	h.mu.Unlock()

	notify(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// TextDocumentHover shows the evidence of the findings on the hovered line
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	line := int(params.Position.Line) + 1
	var parts []string
	for _, f := range doc.findings {
		if f.Line != line {
			continue
		}
		parts = append(parts, fmt.Sprintf("**%s** `%s` (%s)\n\n%s", f.Classification, f.Call, f.Severity, f.Evidence))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(parts, "\n\n---\n\n"),
		},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	tokens, err := collectSemanticTokens(params.TextDocument.URI, doc.content)
	if err != nil {
		return nil, err
	}

	var data []uint32
	var prevLine, prevStart uint32

	// delta-line, delta-start encoding
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

// Diagnose parses and analyzes one model source
func (h *Handler) Diagnose(filename, source string) ([]protocol.Diagnostic, []*analysis.Finding) {
	contracts, err := ir.ParseModel(filename, source)
	if err != nil {
		return ConvertParseError(err), nil
	}

	res, err := h.engine.Analyze(context.Background(), contracts)
	if err != nil {
		log.Errorf("%s: %s", filename, err)
		return []protocol.Diagnostic{}, nil
	}

	functionLines := make(map[string]int)
	for _, c := range contracts {
		for _, fn := range c.Functions {
			if fn != nil {
				functionLines[c.Name+"."+fn.Name] = fn.Line
			}
		}
	}

	findings := res.Findings.Findings()
	diagnostics := append(ConvertFindings(source, findings), ConvertErrors(source, res.Errors, functionLines)...)
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	return diagnostics, findings
}

func (h *Handler) update(ctx *glsp.Context, rawURI protocol.DocumentUri, text string) error {
	path, err := uriToPath(rawURI)
	if err != nil {
		return err
	}

	diagnostics, findings := h.Diagnose(path, text)
	h.mu.Lock()
	h.docs[path] = &document{content: text, findings: findings, diagnostics: diagnostics}
	h.mu.Unlock()

	notify(ctx, rawURI, diagnostics)
	return nil
}

// document returns the analyzed state of a file, loading it from disk if it was never opened
func (h *Handler) document(rawURI protocol.DocumentUri) (*document, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	doc, ok := h.docs[path]
	h.mu.RUnlock()
	if ok {
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	diagnostics, findings := h.Diagnose(path, string(content))
	doc = &document{content: string(content), findings: findings, diagnostics: diagnostics}

	h.mu.Lock()
	h.docs[path] = doc
	h.mu.Unlock()
	return doc, nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// /C:/... on Windows
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func notify(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
