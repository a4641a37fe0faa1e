package main

import (
	"context"
	"io"
	"net/http"
	"time"
)

// getJSON fetches url and returns the raw response body, for status's
// plain-text rendering of the diagnostics server's JSON responses.
func getJSON(url string) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// signalContext returns a context bound to a fixed bootstrap window; a
// node only gets one chance to dial its configured seeds at startup.
func signalContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// postJSON issues an empty-bodied POST to url and returns the raw
// response body, used by the "section invariants" trigger.
func postJSON(url string) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
