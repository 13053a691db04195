// Package rag provides retrieval pipeline configuration options.
package rag

import (
	"fmt"

	"github.com/kart-io/agrichat/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// 默认知识源。与上线的农业病害知识库保持一致。
var (
	defaultWebSources = []string{
		"https://ipm.ucanr.edu/PMG/diseases/diseaseslist.html",
		"http://eos.com/blog/crop-diseases/",
	}
	defaultPDFSources = []string{
		"https://www.uky.edu/Ag/Entomology/PSEP/pdfs/11pests1disease.pdf",
	}
)

// Options contains retrieval pipeline configuration.
type Options struct {
	// WebSources 网页知识源 URL 列表。
	WebSources []string `json:"web-sources" mapstructure:"web-sources"`

	// PDFSources PDF 知识源 URL 列表。
	PDFSources []string `json:"pdf-sources" mapstructure:"pdf-sources"`

	// ChunkSize is the size of text chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MinChunkChars 过滤掉短于该长度的分块（噪声控制）。
	MinChunkChars int `json:"min-chunk-chars" mapstructure:"min-chunk-chars"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Backend selects the vector store backend (local|milvus).
	Backend string `json:"backend" mapstructure:"backend"`

	// PersistDir is the directory holding the persisted local index.
	PersistDir string `json:"persist-dir" mapstructure:"persist-dir"`

	// Collection is the vector collection name (milvus backend).
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// EmbedBatchSize 批量嵌入的批大小。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// EmbedWorkers 并发嵌入的 worker 数。
	EmbedWorkers int `json:"embed-workers" mapstructure:"embed-workers"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		WebSources:     defaultWebSources,
		PDFSources:     defaultPDFSources,
		ChunkSize:      1000,
		ChunkOverlap:   200,
		MinChunkChars:  20,
		TopK:           4,
		Backend:        "local",
		PersistDir:     "./agrichat_index",
		Collection:     "agrichat_chunks",
		EmbeddingDim:   384, // all-MiniLM-L12-v2 dimension
		EmbedBatchSize: 32,
		EmbedWorkers:   4,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.WebSources, options.Join(prefixes...)+"web-sources", o.WebSources, "Web page URLs to ingest into the knowledge base.")
	fs.StringSliceVar(&o.PDFSources, options.Join(prefixes...)+"pdf-sources", o.PDFSources, "PDF URLs to ingest into the knowledge base.")
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"chunk-size", o.ChunkSize, "Size of text chunks.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"chunk-overlap", o.ChunkOverlap, "Overlap between chunks.")
	fs.IntVar(&o.MinChunkChars, options.Join(prefixes...)+"min-chunk-chars", o.MinChunkChars, "Drop chunks shorter than this many characters.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"top-k", o.TopK, "Number of results from similarity search.")
	fs.StringVar(&o.Backend, options.Join(prefixes...)+"backend", o.Backend, "Vector store backend (local|milvus).")
	fs.StringVar(&o.PersistDir, options.Join(prefixes...)+"persist-dir", o.PersistDir, "Directory for the persisted local index.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"collection", o.Collection, "Vector collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.EmbedBatchSize, options.Join(prefixes...)+"embed-batch-size", o.EmbedBatchSize, "Batch size for embedding requests.")
	fs.IntVar(&o.EmbedWorkers, options.Join(prefixes...)+"embed-workers", o.EmbedWorkers, "Number of concurrent embedding workers.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	switch o.Backend {
	case "local":
		if o.PersistDir == "" {
			errs = append(errs, fmt.Errorf("persist-dir is required for the local backend"))
		}
	case "milvus":
		if o.Collection == "" {
			errs = append(errs, fmt.Errorf("collection is required for the milvus backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (local|milvus)", o.Backend))
	}
	if len(o.WebSources)+len(o.PDFSources) == 0 {
		errs = append(errs, fmt.Errorf("at least one web or pdf source is required"))
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 32
	}
	if o.EmbedWorkers <= 0 {
		o.EmbedWorkers = 4
	}
	return nil
}
