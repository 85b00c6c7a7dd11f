package main

import (
	"fmt"
	"os"

	"github.com/stwalsh4118/acreage/internal/clients/parcels"
	"github.com/stwalsh4118/acreage/internal/clients/textgen"
	"github.com/stwalsh4118/acreage/internal/config"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/services"
)

func main() {
	if err := newRootCmd(loadDeps).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadDeps builds the provider-backed services. Logs go to stderr so command
// output stays pipeable.
func loadDeps() (*deps, error) {
	cfg, err := config.LoadProviders()
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cfg.Server.Env, os.Stderr)

	var generator services.TextGenerator
	if cfg.OpenAI.APIKey != "" {
		generator = textgen.NewClient(textgen.Options{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout,
		})
	}

	return &deps{
		parcels: services.NewParcelService(
			parcels.NewClient(parcels.Options{
				BaseURL:    cfg.Parcels.BaseURL,
				APIKey:     cfg.Parcels.APIKey,
				APIVersion: cfg.Parcels.APIVersion,
				Timeout:    cfg.Parcels.Timeout,
				RateLimit:  cfg.Parcels.RateLimit,
			}),
			services.RegionConfig{
				State:  cfg.Parcels.DefaultState,
				County: cfg.Parcels.DefaultCounty,
			},
			log,
		),
		content: services.NewContentService(generator, log),
	}, nil
}
