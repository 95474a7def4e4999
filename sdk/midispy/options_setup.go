package midispy

import (
	"github.com/leandrodaf/midispy/internal/logger"
	"github.com/leandrodaf/midispy/sdk/contracts"
)

// applyDefaultOptions sets default values for SessionOptions if not
// explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.SessionOptions, error) {
	options := &contracts.SessionOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.ClientName == "" {
		options.ClientName = "midispy"
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
