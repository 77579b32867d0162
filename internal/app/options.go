package service

import (
	"github.com/okian/servhooks/internal/domain/enrichment"
	"github.com/okian/servhooks/internal/domain/identity"
	"github.com/okian/servhooks/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many delivery ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithManagedChannels seeds the channel to bot directory.
func WithManagedChannels(channels map[string]string) Option {
	return func(s *Service) {
		s.managedChannels = channels
	}
}

// WithEnrichmentOptions passes options through to the orchestrator.
func WithEnrichmentOptions(opts ...enrichment.Option) Option {
	return func(s *Service) {
		s.enrichmentOpts = append(s.enrichmentOpts, opts...)
	}
}

// WithIdentityOptions passes options through to the identity controller.
func WithIdentityOptions(opts ...identity.Option) Option {
	return func(s *Service) {
		s.identityOpts = append(s.identityOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
