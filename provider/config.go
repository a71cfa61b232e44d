package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/internal/httpclient"
	"github.com/aryanzandi123/yesah/logger"
)

// FromConfig builds the provider am.toml selects, wrapped in a payload cache
// when provider.cache_path is set. Expired cache rows are deleted on open.
// The returned close function releases the cache and is never nil.
func FromConfig(cfg *am.Config, log *zap.SugaredLogger) (Provider, func() error, error) {
	noop := func() error { return nil }
	pc := cfg.Provider

	var base Provider
	switch pc.Kind {
	case am.ProviderHTTP:
		client := httpclient.NewSaferClient(
			time.Duration(cfg.FetchTimeoutSeconds())*time.Second,
			httpclient.Options{AllowPrivate: pc.AllowPrivateIPs})
		base = NewHTTPProvider(pc.BaseURL, client,
			time.Duration(cfg.Expansion.PollIntervalMS)*time.Millisecond, log)
	case am.ProviderDir:
		base = NewDirProvider(pc.Dir, log)
	default:
		return nil, noop, errors.WithHint(
			errors.Newf("unknown provider kind %q", pc.Kind),
			"set provider.kind to \"http\" or \"dir\"")
	}

	if pc.CachePath == "" {
		return base, noop, nil
	}
	store, err := OpenCacheStore(pc.CachePath, time.Duration(pc.CacheTTLSeconds)*time.Second)
	if err != nil {
		return nil, noop, err
	}
	if n, err := store.Purge(context.Background()); err != nil {
		log.Warnw("Failed to purge expired payloads", logger.FieldFile, pc.CachePath, logger.FieldError, err)
	} else if n > 0 {
		log.Infow("Purged expired payloads", logger.FieldFile, pc.CachePath, logger.FieldCount, n)
	}
	return NewCachingProvider(base, store, log), store.Close, nil
}
