package tokenauth

import (
	"context"
	"strings"
	"testing"
	"time"
)

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func newAuditTestEngine(t *testing.T, sink AuditSink) *Engine {
	t.Helper()
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 32
		cfg.Audit.DropIfFull = false
	}, func(b *Builder) { b.WithAuditSink(sink) })
	return engine
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := newCaptureSink(8)
	engine, _ := newTestEngine(t, nil, func(b *Builder) { b.WithAuditSink(sink) })

	pair, err := engine.IssueTokens(context.Background(), workedExample)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = engine.Refresh(context.Background(), pair.RefreshToken)
	engine.Close()

	if len(sink.events) != 0 {
		t.Fatalf("expected no audit events, got %d", len(sink.events))
	}
}

func TestAuditEventsForLifecycle(t *testing.T) {
	sink := newCaptureSink(32)
	engine := newAuditTestEngine(t, sink)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	pair, err := engine.IssueTokens(ctx, workedExample)
	if err != nil {
		t.Fatal(err)
	}
	next, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = engine.Refresh(ctx, pair.RefreshToken)
	if err := engine.Logout(ctx, next.RefreshToken); err != nil {
		t.Fatal(err)
	}
	engine.Close()

	var events []AuditEvent
	for len(sink.events) > 0 {
		events = append(events, <-sink.events)
	}

	wantTypes := []string{auditEventIssueSuccess, auditEventRefreshRotated, auditEventRefreshFailure, auditEventLogout}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantTypes), len(events), events)
	}
	for i, want := range wantTypes {
		ev := events[i]
		if ev.EventType != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, ev.EventType)
		}
		if ev.IP != "203.0.113.7" {
			t.Fatalf("event %d: expected client ip, got %q", i, ev.IP)
		}
		if ev.Timestamp.IsZero() {
			t.Fatalf("event %d: missing timestamp", i)
		}
	}

	if events[0].AccountID != "7" || !events[0].Success || events[0].RecordID == "" {
		t.Fatalf("unexpected issue event %+v", events[0])
	}
	if events[1].Metadata["previous_record_id"] != events[0].RecordID {
		t.Fatalf("rotation should reference the consumed record, got %+v", events[1])
	}
	if events[2].Success || events[2].Error != string(auditErrSessionMissing) {
		t.Fatalf("unexpected failure event %+v", events[2])
	}
	if events[3].Metadata["found"] != "true" || events[3].RecordID != events[1].RecordID {
		t.Fatalf("unexpected logout event %+v", events[3])
	}
}

func TestAuditReissueRecordsReason(t *testing.T) {
	sink := newCaptureSink(8)
	engine, clock := newTestEngine(t, func(cfg *Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 8
		cfg.Audit.DropIfFull = false
	}, func(b *Builder) { b.WithAuditSink(sink) })

	pair, err := engine.IssueTokens(context.Background(), workedExample)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := engine.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatal(err)
	}
	engine.Close()

	<-sink.events
	ev := <-sink.events
	if ev.EventType != auditEventRefreshReissued || ev.Metadata["reason"] != "refresh_token_expired" {
		t.Fatalf("unexpected reissue event %+v", ev)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := newCaptureSink(32)
	engine := newAuditTestEngine(t, sink)

	pair, err := engine.IssueTokens(context.Background(), workedExample)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	next, err := engine.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, _ = engine.Refresh(context.Background(), tamper(next.RefreshToken))
	engine.Close()

	secretNeedles := []string{
		pair.AccessToken,
		pair.RefreshToken,
		next.AccessToken,
		next.RefreshToken,
		string(testAccessKey),
		string(testRefreshKey),
	}

	if len(sink.events) == 0 {
		t.Fatal("expected at least one audit event")
	}
	for len(sink.events) > 0 {
		ev := <-sink.events
		for _, needle := range secretNeedles {
			if strings.Contains(ev.Error, needle) || strings.Contains(ev.RecordID, needle) {
				t.Fatalf("sensitive value leaked in audit event: %+v", ev)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %+v", ev)
				}
			}
		}
	}
}
