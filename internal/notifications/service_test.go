package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"glossa/internal/config"
	"glossa/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyTranslationCompleted(context.Background(), "paper.pdf", "/out/paper.pdf"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServicePublishesCompletion(t *testing.T) {
	var gotTitle, gotTags, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyTranslationCompleted(context.Background(), "paper.pdf", "/out/paper (双语).pdf"); err != nil {
		t.Fatalf("NotifyTranslationCompleted: %v", err)
	}
	if gotTitle != "Glossa - Complete" {
		t.Fatalf("unexpected title: %q", gotTitle)
	}
	if gotTags != "glossa,translate,completed" {
		t.Fatalf("unexpected tags: %q", gotTags)
	}
	if !strings.Contains(gotBody, "paper.pdf") || !strings.Contains(gotBody, "paper (双语).pdf") {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestNtfyServicePublishesFailureWithPriority(t *testing.T) {
	var gotPriority, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyTranslationFailed(context.Background(), "paper.pdf", "engine not available"); err != nil {
		t.Fatalf("NotifyTranslationFailed: %v", err)
	}
	if gotPriority != "high" {
		t.Fatalf("unexpected priority: %q", gotPriority)
	}
	if !strings.Contains(gotBody, "engine not available") {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}
