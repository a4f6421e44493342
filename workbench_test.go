package jwtdebug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	updates []Update
	ch      chan Update
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Update, 16)}
}

func (r *recorder) deliver(up Update) {
	r.mu.Lock()
	r.updates = append(r.updates, up)
	r.mu.Unlock()
	r.ch <- up
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) wait(t *testing.T) Update {
	t.Helper()
	select {
	case up := <-r.ch:
		return up
	case <-time.After(2 * time.Second):
		t.Fatalf("no update delivered")
		return Update{}
	}
}

func TestWorkbenchLastInputWins(t *testing.T) {
	rec := newRecorder()
	w := NewWorkbench(WorkbenchConfig{Debounce: 30 * time.Millisecond}, rec.deliver)
	defer w.Close()

	payloads := []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}
	var last uint64
	for _, p := range payloads {
		last = w.Submit(Input{Mode: ModeDecode, Token: Base64URLEncode([]byte(`{"alg":"none"}`)) + "." + Base64URLEncode([]byte(p)) + "."})
	}

	up := rec.wait(t)
	assert.Equal(t, last, up.Generation)
	require.NoError(t, up.Err)
	require.NotNil(t, up.Token)
	assert.Equal(t, json.Number("3"), up.Token.Payload["n"])

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestWorkbenchDiscardsStaleGeneration(t *testing.T) {
	var logs bytes.Buffer
	w := NewWorkbench(WorkbenchConfig{Debounce: time.Hour}, nil,
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	defer w.Close()

	first := w.Submit(Input{Token: sampleToken})
	gen, _, ok := w.snapshot()
	require.True(t, ok)
	assert.Equal(t, first, gen)

	second := w.Submit(Input{Token: sampleToken})
	current, latest := w.isCurrent(first)
	assert.False(t, current)
	assert.Equal(t, second, latest)

	current, _ = w.isCurrent(second)
	assert.True(t, current)

	w.Flush()
	assert.Contains(t, logs.String(), "evaluated input")
	assert.Contains(t, logs.String(), "generation=2")
}

func TestWorkbenchDecodeAndVerify(t *testing.T) {
	rec := newRecorder()
	w := NewWorkbench(WorkbenchConfig{Debounce: time.Hour}, rec.deliver)
	defer w.Close()

	w.Submit(Input{Mode: ModeDecode, Token: sampleToken, Key: TextSecret(sampleSecret)})
	w.Flush()
	up := rec.wait(t)

	require.NoError(t, up.Err)
	require.NotNil(t, up.Summary)
	assert.Equal(t, "HS256", up.Summary.Algorithm)
	require.NotNil(t, up.Verification)
	assert.True(t, up.Verification.Valid, up.Verification.Reason)

	w.Submit(Input{Mode: ModeDecode, Token: sampleToken, Key: TextSecret("wrong-secret")})
	w.Flush()
	up = rec.wait(t)
	require.NotNil(t, up.Verification)
	assert.Equal(t, ErrCodeSignatureInvalid, up.Verification.Code)

	w.Submit(Input{Mode: ModeDecode, Token: sampleToken, Key: PEM("not a pem")})
	w.Flush()
	up = rec.wait(t)
	require.NotNil(t, up.Verification)
	assert.Equal(t, ErrCodeKeyAlgorithmMismatch, up.Verification.Code)

	w.Submit(Input{Mode: ModeDecode, Token: sampleToken})
	w.Flush()
	up = rec.wait(t)
	assert.Nil(t, up.Verification)
	assert.NotNil(t, up.Summary)

	w.Submit(Input{Mode: ModeDecode, Token: "not.a.jwt.at.all.period"})
	w.Flush()
	up = rec.wait(t)
	assert.Equal(t, ErrCodeMalformedToken, CodeOf(up.Err))
}

func TestWorkbenchEncode(t *testing.T) {
	rec := newRecorder()
	w := NewWorkbench(WorkbenchConfig{Debounce: time.Hour}, rec.deliver)
	defer w.Close()

	w.Submit(Input{
		Mode:      ModeEncode,
		Header:    `{"alg":"HS256","typ":"JWT"}`,
		Payload:   `{"sub":"1234567890"}`,
		Algorithm: AlgHS256,
		Key:       TextSecret(sampleSecret),
	})
	w.Flush()
	up := rec.wait(t)
	require.NoError(t, up.Err)
	assert.Equal(t, ModeEncode, up.Mode)
	assert.Equal(t, sampleToken, up.Encoded)
	require.NotNil(t, up.Summary)
	assert.Equal(t, "1234567890", up.Summary.Subject.Full)

	w.Submit(Input{Mode: ModeEncode, Payload: `{"sub":"x"}`, Algorithm: AlgRS256, Key: TextSecret("secret")})
	w.Flush()
	up = rec.wait(t)
	assert.Equal(t, ErrCodeKeyAlgorithmMismatch, CodeOf(up.Err))

	w.Submit(Input{Mode: ModeEncode, Header: `{"alg":"HS256"}`, Payload: `{"sub":"x"}`})
	w.Flush()
	up = rec.wait(t)
	assert.Equal(t, ErrCodeSigningError, CodeOf(up.Err))
}

func TestWorkbenchDeliversEachGenerationOnce(t *testing.T) {
	rec := newRecorder()
	w := NewWorkbench(WorkbenchConfig{Debounce: time.Hour}, rec.deliver)
	defer w.Close()

	gen := w.Submit(Input{Token: sampleToken})
	w.Flush()
	// A timer callback that was already running when Flush stopped it.
	w.run()
	w.Flush()

	up := rec.wait(t)
	assert.Equal(t, gen, up.Generation)
	assert.Equal(t, 1, rec.count())

	next := w.Submit(Input{Token: sampleToken})
	w.Flush()
	assert.Equal(t, next, rec.wait(t).Generation)
	assert.Equal(t, 2, rec.count())
}

func TestWorkbenchClose(t *testing.T) {
	rec := newRecorder()
	w := NewWorkbench(WorkbenchConfig{Debounce: time.Hour}, rec.deliver)

	gen := w.Submit(Input{Token: sampleToken})
	w.Close()
	assert.Equal(t, gen, w.Submit(Input{Token: sampleToken}))

	w.Flush()
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, "encode", ModeEncode.String())
	assert.Equal(t, "decode", ModeDecode.String())
}
