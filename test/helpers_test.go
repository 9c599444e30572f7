package test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/MrEthical07/tokenauth"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func exampleConfig() tokenauth.Config {
	cfg := tokenauth.DefaultConfig()
	cfg.JWT.MasterSecret = []byte(strings.Repeat("example-master-secret-", 3))
	return cfg
}

func mustEngine(tb testing.TB, b *tokenauth.Builder) *tokenauth.Engine {
	tb.Helper()
	engine, err := b.Build()
	if err != nil {
		tb.Fatalf("build: %v", err)
	}
	tb.Cleanup(engine.Close)
	return engine
}

var alice = tokenauth.Principal{AccountID: 1, Email: "alice@example.com", Role: "member"}
