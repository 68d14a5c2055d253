package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
)

// Config holds Lark app credentials
type Config struct {
	AppID     string
	AppSecret string
	Timeout   time.Duration
}

// NewSDKClient creates a Lark SDK client with token caching
func NewSDKClient(cfg Config) *lark.Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.Timeout))
	}
	return lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)
}
