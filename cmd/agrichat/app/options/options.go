// Package options aggregates all server configuration options.
package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/kart-io/agrichat/internal/agrichat"
	"github.com/kart-io/agrichat/pkg/app"
	cacheopts "github.com/kart-io/agrichat/pkg/options/cache"
	llmopts "github.com/kart-io/agrichat/pkg/options/llm"
	logopts "github.com/kart-io/agrichat/pkg/options/logger"
	milvusopts "github.com/kart-io/agrichat/pkg/options/milvus"
	ragopts "github.com/kart-io/agrichat/pkg/options/rag"
	httpopts "github.com/kart-io/agrichat/pkg/options/server/http"
	sessopts "github.com/kart-io/agrichat/pkg/options/session"
)

var _ app.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the full configuration of the chat server.
type ServerOptions struct {
	HTTP      *httpopts.Options        `json:"http" mapstructure:"http"`
	Log       *logopts.Options         `json:"log" mapstructure:"log"`
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	Chat      *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	RAG       *ragopts.Options         `json:"rag" mapstructure:"rag"`
	Session   *sessopts.Options        `json:"session" mapstructure:"session"`
	Cache     *cacheopts.Options       `json:"cache" mapstructure:"cache"`
	Milvus    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
}

// NewServerOptions creates ServerOptions with defaults.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTP:      httpopts.NewOptions(),
		Log:       logopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		RAG:       ragopts.NewOptions(),
		Session:   sessopts.NewOptions(),
		Cache:     cacheopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
	}
}

// AddFlags adds all option flags to the flagset.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.RAG.AddFlags(fs, "rag")
	o.Session.AddFlags(fs, "session.")
	o.Cache.AddFlags(fs, "cache.")
	o.Milvus.AddFlags(fs)
}

// Validate validates all options.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTP.Validate()...)
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.RAG.Validate()...)
	errs = append(errs, o.Session.Validate()...)
	errs = append(errs, o.Cache.Validate()...)
	if o.RAG.Backend == "milvus" {
		errs = append(errs, o.Milvus.Validate()...)
	}

	return errors.Join(errs...)
}

// Complete fills in derived defaults.
func (o *ServerOptions) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	if err := o.RAG.Complete(); err != nil {
		return err
	}
	if err := o.Session.Complete(); err != nil {
		return err
	}
	return o.Cache.Complete()
}

// Config assembles the server config from the options.
func (o *ServerOptions) Config() *agrichat.Config {
	return &agrichat.Config{
		HTTPOptions:      o.HTTP,
		LogOptions:       o.Log,
		EmbeddingOptions: o.Embedding,
		ChatOptions:      o.Chat,
		RAGOptions:       o.RAG,
		SessionOptions:   o.Session,
		CacheOptions:     o.Cache,
		MilvusOptions:    o.Milvus,
	}
}
