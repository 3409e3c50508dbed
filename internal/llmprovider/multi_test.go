package llmprovider

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	name      string
	available bool
	err       error
	text      string
	streamErr error
	streamSeq []string
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) IsAvailable() bool { return f.available }

func (f *fakeProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error) {
	if f.err != nil {
		return "", TokenInfo{}, f.err
	}
	return f.text, TokenInfo{TotalTokens: len(f.text)}, nil
}

func (f *fakeProvider) Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error {
	for _, chunk := range f.streamSeq {
		if err := handler(StreamChunk{Content: chunk}); err != nil {
			return err
		}
	}
	if f.streamErr != nil {
		return f.streamErr
	}
	return handler(StreamChunk{Done: true})
}

func TestMultiClientFallsBackOnRetryableError(t *testing.T) {
	a := &fakeProvider{name: "A", available: true, err: errors.New("connection reset")}
	b := &fakeProvider{name: "B", available: true, text: "answer from B"}
	client := NewMultiClient(a, b)

	text, _, err := client.Generate(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "answer from B" {
		t.Errorf("expected answer from B, got %q", text)
	}
	if client.LastProvider() != "B" {
		t.Errorf("expected lastProvider == B, got %q", client.LastProvider())
	}
}

func TestMultiClientStopsOnNonRetryableError(t *testing.T) {
	a := &fakeProvider{name: "A", available: true, err: errors.New("invalid business request")}
	b := &fakeProvider{name: "B", available: true, text: "should not be reached"}
	client := NewMultiClient(a, b)

	_, _, err := client.Generate(context.Background(), nil, Options{})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if client.LastProvider() != "" {
		t.Errorf("expected no successful provider recorded, got %q", client.LastProvider())
	}
}

func TestMultiClientSkipsUnavailableProviders(t *testing.T) {
	a := &fakeProvider{name: "A", available: false}
	b := &fakeProvider{name: "B", available: true, text: "from B"}
	client := NewMultiClient(a, b)

	text, _, err := client.Generate(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from B" {
		t.Errorf("expected from B, got %q", text)
	}
}

func TestMultiClientExhaustsAllProviders(t *testing.T) {
	a := &fakeProvider{name: "A", available: true, err: errors.New("timeout")}
	b := &fakeProvider{name: "B", available: true, err: errors.New("connection refused")}
	client := NewMultiClient(a, b)

	_, _, err := client.Generate(context.Background(), nil, Options{})
	if err == nil {
		t.Fatal("expected error when all providers exhausted")
	}
}

func TestMultiClientStreamDoesNotRetryAfterCommit(t *testing.T) {
	a := &fakeProvider{name: "A", available: true, streamSeq: []string{"partial"}, streamErr: errors.New("connection reset mid-stream")}
	b := &fakeProvider{name: "B", available: true, streamSeq: []string{"full"}}
	client := NewMultiClient(a, b)

	var got string
	err := client.Stream(context.Background(), nil, Options{}, func(c StreamChunk) error {
		got += c.Content
		return nil
	})
	if err == nil {
		t.Fatal("expected mid-stream error to propagate without fallback")
	}
	if got != "partial" {
		t.Errorf("expected only A's partial output, got %q", got)
	}
}

func TestIsSoftErrorDetection(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"[Error] rate limited", true},
		{"normal response text", false},
		{"[not an error marker]", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isSoftError(tc.text); got != tc.want {
			t.Errorf("isSoftError(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
