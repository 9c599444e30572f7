package tokenauth

import (
	"context"
	"testing"
	"time"
)

func BenchmarkValidateAccess(b *testing.B) {
	engine, _ := newTestEngine(b, nil)
	pair, err := engine.IssueTokens(context.Background(), workedExample)
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.ValidateAccess(context.Background(), pair.AccessToken); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkIssueTokens(b *testing.B) {
	engine, _ := newTestEngine(b, nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.IssueTokens(context.Background(), workedExample); err != nil {
			b.Fatalf("issue failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	engine, _ := newTestEngine(b, nil)
	pair, err := engine.IssueTokens(context.Background(), workedExample)
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}
	token := pair.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := engine.Refresh(context.Background(), token)
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
		token = next.RefreshToken
	}
}

func BenchmarkRefreshDegradedReissue(b *testing.B) {
	engine, clock := newTestEngine(b, nil)
	pair, err := engine.IssueTokens(context.Background(), workedExample)
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}
	clock.Advance(2 * time.Hour)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Refresh(context.Background(), pair.RefreshToken); err != nil {
			b.Fatalf("reissue failed: %v", err)
		}
	}
}
