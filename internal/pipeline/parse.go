package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/docai"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
)

// ParseDocuments converts every staged document to markdown and stages the
// markdown next to it. Documents the parsing service rejects are skipped;
// the node fails only when the service itself is down or nothing at all
// parsed.
type ParseDocuments struct {
	Docs   docstore.Store
	Parser docai.Parser
	Log    zerolog.Logger
}

func (n *ParseDocuments) Name() string { return "parse_documents" }

func (n *ParseDocuments) Run(ctx context.Context, s *State) error {
	paths := make([]string, 0, len(s.FilePaths))
	for _, key := range s.FilePaths {
		mdKey, _, err := parseAndStage(ctx, n.Docs, n.Parser, key)
		if err != nil {
			if docFailure(err) {
				n.Log.Warn().Err(err).Str("document", key).Msg("document not parseable, skipping")
				continue
			}
			return err
		}
		paths = append(paths, mdKey)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no document in the batch produced markdown")
	}
	s.MarkdownPaths = paths
	return nil
}

// parseAndStage reads one staged document, parses it, and writes the
// markdown under the document's markdown key. Parser errors that are the
// service's fault come back as *ServiceUnavailableError.
func parseAndStage(ctx context.Context, docs docstore.Store, parser docai.Parser, key string) (string, string, error) {
	raw, err := docs.Get(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("read staged document %s: %w", key, err)
	}
	md, err := parser.Parse(ctx, key, bytes.NewReader(raw))
	if err != nil {
		if docFailure(err) {
			return "", "", err
		}
		return "", "", &ServiceUnavailableError{Service: "document parser", Err: err}
	}
	mdKey := docstore.MarkdownKey(key)
	if err := docs.Put(ctx, mdKey, []byte(md)); err != nil {
		return "", "", fmt.Errorf("stage markdown %s: %w", mdKey, err)
	}
	return mdKey, md, nil
}

// docFailure reports whether a parse error is the document's own fault: the
// service rejected it or returned nothing for it. Rate limiting and server
// errors are the service failing, not the document.
func docFailure(err error) bool {
	if errors.Is(err, docai.ErrNoMarkdown) {
		return true
	}
	var pe *docai.ParseError
	if errors.As(err, &pe) {
		return pe.Status < 500 && pe.Status != http.StatusTooManyRequests
	}
	return false
}
