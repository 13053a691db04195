// Package biz implements the question answering pipeline.
package biz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kart-io/logger"
	"github.com/ledongthuc/pdf"

	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/internal/pkg/textutil"
	ragopts "github.com/kart-io/agrichat/pkg/options/rag"
	"github.com/kart-io/agrichat/pkg/utils/httpclient"
)

const ingestUserAgent = "agrichat/1.0 (+https://github.com/kart-io/agrichat)"

// Ingester 从配置的网页与 PDF 源抓取原始文档。
// 单个源失败时记录警告并跳过，不中断整体摄取。
type Ingester struct {
	client     *httpclient.Client
	webSources []string
	pdfSources []string
}

// NewIngester creates an ingester for the configured sources.
func NewIngester(opts *ragopts.Options) *Ingester {
	client := httpclient.NewClient(60*time.Second, 3,
		httpclient.WithUserAgent(ingestUserAgent),
		httpclient.WithRateLimit(2, 1),
	)
	return &Ingester{
		client:     client,
		webSources: opts.WebSources,
		pdfSources: opts.PDFSources,
	}
}

// IngestAll fetches every configured source and returns the extracted
// documents. Failed sources are skipped with a warning.
func (ing *Ingester) IngestAll(ctx context.Context) []model.Document {
	docs := make([]model.Document, 0)

	for _, url := range ing.webSources {
		doc, err := ing.ingestWeb(ctx, url)
		if err != nil {
			logger.Warnw("Failed to ingest web source, skipping", "url", url, "error", err)
			continue
		}
		logger.Infow("Ingested web source", "url", url, "chars", len(doc.Content))
		docs = append(docs, doc)
	}

	for _, url := range ing.pdfSources {
		pages, err := ing.ingestPDF(ctx, url)
		if err != nil {
			logger.Warnw("Failed to ingest PDF source, skipping", "url", url, "error", err)
			continue
		}
		logger.Infow("Ingested PDF source", "url", url, "pages", len(pages))
		docs = append(docs, pages...)
	}

	return docs
}

func (ing *Ingester) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ing.client.DoRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// ingestWeb fetches a page and extracts its visible text.
func (ing *Ingester) ingestWeb(ctx context.Context, url string) (model.Document, error) {
	body, err := ing.fetch(ctx, url)
	if err != nil {
		return model.Document{}, err
	}
	return extractWebDocument(url, body)
}

// extractWebDocument parses HTML and extracts the visible body text.
func extractWebDocument(url string, body []byte) (model.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	title := textutil.NormalizeWhitespace(doc.Find("title").First().Text())
	content := textutil.NormalizeWhitespace(doc.Find("body").Text())
	if content == "" {
		return model.Document{}, fmt.Errorf("page has no extractable text")
	}

	return model.Document{
		Source:  url,
		Title:   title,
		Content: content,
	}, nil
}

// ingestPDF downloads a PDF and extracts text per page. The download is
// spooled to a temp file because the PDF reader needs random access.
func (ing *Ingester) ingestPDF(ctx context.Context, url string) ([]model.Document, error) {
	body, err := ing.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "agrichat-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(body); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	f, reader, err := pdf.Open(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	docs := make([]model.Document, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warnw("Failed to extract PDF page text, skipping page", "url", url, "page", i, "error", err)
			continue
		}

		content := textutil.NormalizeWhitespace(text)
		if content == "" {
			continue
		}

		docs = append(docs, model.Document{
			Source:  url,
			Page:    i,
			Content: content,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("PDF produced no extractable text")
	}
	return docs, nil
}
