package jwtdebug

import (
	"log/slog"
	"sync"
	"time"
)

// Mode selects what the workbench does with an Input.
type Mode int

const (
	ModeDecode Mode = iota
	ModeEncode
)

func (m Mode) String() string {
	if m == ModeEncode {
		return "encode"
	}
	return "decode"
}

// Input is the full state of the editor at one point in time.
type Input struct {
	Mode Mode

	// Decode mode.
	Token string

	// Encode mode: header and payload JSON text.
	Header  string
	Payload string

	// Algorithm the key is imported for. In decode mode it defaults to the
	// token's own "alg".
	Algorithm Algorithm
	// Key is optional in decode mode; verification runs only when it is set.
	Key KeyMaterial
}

// Update is the evaluation result for one generation of input.
type Update struct {
	Generation   uint64
	Mode         Mode
	Token        *Token
	Summary      *Summary
	Verification *Result
	Encoded      string
	Err          error
}

// WorkbenchOption customizes a Workbench.
type WorkbenchOption func(*Workbench)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) WorkbenchOption {
	return func(w *Workbench) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Workbench debounces editor input and evaluates only the latest state.
// Results computed for an input that has since been replaced are dropped.
type Workbench struct {
	cfg       WorkbenchConfig
	presenter *Presenter
	logger    *slog.Logger
	deliver   func(Update)

	// evalMu serializes evaluations so edits never overlap crypto work.
	evalMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	delivered  uint64
	pending    Input
	timer      *time.Timer
	closed     bool
}

// NewWorkbench creates a workbench that calls deliver with each current result.
func NewWorkbench(cfg WorkbenchConfig, deliver func(Update), opts ...WorkbenchOption) *Workbench {
	cfg.normalize()
	w := &Workbench{
		cfg:       cfg,
		presenter: NewPresenter(cfg.Presenter),
		logger:    slog.New(slog.DiscardHandler),
		deliver:   deliver,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit replaces the current input and restarts the debounce timer. It
// returns the generation assigned to in.
func (w *Workbench) Submit(in Input) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.generation
	}
	w.generation++
	w.pending = in
	if w.timer == nil {
		w.timer = time.AfterFunc(w.cfg.Debounce, w.run)
	} else {
		w.timer.Reset(w.cfg.Debounce)
	}
	return w.generation
}

// Flush evaluates the pending input immediately.
func (w *Workbench) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.run()
}

// Close stops the timer; later submissions are ignored.
func (w *Workbench) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Workbench) run() {
	w.evalMu.Lock()
	defer w.evalMu.Unlock()

	gen, in, ok := w.snapshot()
	if !ok {
		return
	}
	update := w.evaluate(in)
	update.Generation = gen

	if current, latest := w.isCurrent(gen); !current {
		w.logger.Debug("discarding stale result", "generation", gen, "latest", latest)
		return
	}
	w.logger.Debug("evaluated input", "generation", gen, "mode", in.Mode.String(), "error", update.Err)
	w.mu.Lock()
	w.delivered = gen
	w.mu.Unlock()
	if w.deliver != nil {
		w.deliver(update)
	}
}

func (w *Workbench) snapshot() (uint64, Input, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A timer that fired while Flush was running finds nothing new.
	if w.closed || w.generation == 0 || w.generation == w.delivered {
		return 0, Input{}, false
	}
	return w.generation, w.pending, true
}

func (w *Workbench) isCurrent(gen uint64) (bool, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && w.generation == gen, w.generation
}

func (w *Workbench) evaluate(in Input) Update {
	if in.Mode == ModeEncode {
		return w.encode(in)
	}
	return w.decode(in)
}

func (w *Workbench) decode(in Input) Update {
	up := Update{Mode: ModeDecode}
	tok, err := ParseToken(in.Token)
	if err != nil {
		up.Err = err
		return up
	}
	summary := w.presenter.SummarizeToken(tok)
	up.Token = tok
	up.Summary = &summary

	if in.Key == nil {
		return up
	}
	alg := in.Algorithm
	if alg == "" {
		declared, _ := tok.Algorithm()
		parsed, err := ParseAlgorithm(declared)
		if err != nil {
			up.Verification = resultFor(tok, err)
			return up
		}
		alg = parsed
	}
	if alg == AlgNone {
		res := Verify(in.Token, nil, w.cfg.Verify...)
		up.Verification = &res
		return up
	}
	key, err := ImportKey(alg, in.Key, UsageVerify)
	if err != nil {
		up.Verification = resultFor(tok, err)
		return up
	}
	res := Verify(in.Token, key, w.cfg.Verify...)
	up.Verification = &res
	return up
}

func (w *Workbench) encode(in Input) Update {
	up := Update{Mode: ModeEncode}
	var key *Key
	if in.Algorithm != "" && in.Algorithm != AlgNone {
		imported, err := ImportKey(in.Algorithm, in.Key, UsageSign)
		if err != nil {
			up.Err = err
			return up
		}
		key = imported
	}
	encoded, err := SignJSON(in.Header, in.Payload, key)
	if err != nil {
		up.Err = err
		return up
	}
	up.Encoded = encoded
	if tok, err := ParseToken(encoded); err == nil {
		summary := w.presenter.SummarizeToken(tok)
		up.Token = tok
		up.Summary = &summary
	}
	return up
}

func resultFor(tok *Token, err error) *Result {
	res := failed(Result{Token: tok}, err)
	return &res
}
