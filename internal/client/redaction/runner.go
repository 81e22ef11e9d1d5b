// Package redaction drives a single chat turn from the composer to the
// assistant reply.
//
// A Runner is bound to one chat. SubmitTurn appends the optimistic user
// message, calls the backend (plain message or image redaction), and appends
// exactly one assistant message: the detection summary, the image prompt for
// text turns, or the fixed apology on failure. Authentication failures are
// not absorbed; the runner moves to Error and returns them.
//
// The result hook runs after the turn has finished, on its own goroutine.
// Close waits for it.
package redaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/attachment"
	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/timeline"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/dmitrijs2005/anonify/internal/logging"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrEmptyTurn = fmt.Errorf("empty turn: %w", common.ErrValidation)
	ErrBusy      = errors.New("a turn is already in flight")
	ErrClosed    = errors.New("chat closed")
)

// DefaultReplyDelay paces the assistant reply to a text-only turn.
const DefaultReplyDelay = 500 * time.Millisecond

// Backend is the part of api.Client the runner calls.
type Backend interface {
	SendMessage(ctx context.Context, chatID int64, msg models.NewMessage) (*models.Message, error)
	Redact(ctx context.Context, file models.Upload, opts models.RedactOptions) (*models.DetectionResult, error)
}

// ResultHook receives every detection result after its turn completed. The
// context carries the caller's values but not its cancellation.
type ResultHook func(ctx context.Context, chatID int64, res *models.DetectionResult)

type Config struct {
	ReplyDelay time.Duration
	Options    models.RedactOptions
}

type Runner struct {
	chatID   int64
	backend  Backend
	timeline *timeline.Timeline
	slot     *attachment.Slot
	clock    clockwork.Clock
	log      logging.Logger
	cfg      Config
	onResult ResultHook

	lifetime context.Context
	cancel   context.CancelFunc
	hooks    sync.WaitGroup

	// emitMu serializes appends against Close so nothing lands after close.
	emitMu sync.Mutex

	mu        sync.Mutex
	state     State
	text      string
	closed    bool
	timers    map[int]clockwork.Timer
	nextTimer int
}

type Option func(*Runner)

func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func WithResultHook(h ResultHook) Option {
	return func(r *Runner) { r.onResult = h }
}

func WithConfig(cfg Config) Option {
	return func(r *Runner) { r.cfg = cfg }
}

// WithPreviewer sets where staged files are previewed. The default writes
// temp files.
func WithPreviewer(p attachment.Previewer) Option {
	return func(r *Runner) { r.slot = attachment.NewSlot(p) }
}

func NewRunner(chatID int64, backend Backend, tl *timeline.Timeline, opts ...Option) *Runner {
	r := &Runner{
		chatID:   chatID,
		backend:  backend,
		timeline: tl,
		clock:    clockwork.NewRealClock(),
		log:      logging.Nop(),
		cfg:      Config{ReplyDelay: DefaultReplyDelay},
		timers:   make(map[int]clockwork.Timer),
	}
	for _, o := range opts {
		o(r)
	}
	if r.slot == nil {
		r.slot = attachment.NewSlot(attachment.NewTempFilePreviewer(""))
	}
	r.log = r.log.With("chat_id", chatID)
	r.lifetime, r.cancel = context.WithCancel(context.Background())
	return r
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// SetText updates the composer text.
func (r *Runner) SetText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.text = text
	r.settleComposerLocked()
	return nil
}

// StageAttachment stages file, releasing any previously staged one.
func (r *Runner) StageAttachment(file models.Upload) (*attachment.Pending, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}
	p, err := r.slot.Stage(file)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.slot.Remove()
		return nil, ErrClosed
	}
	r.settleComposerLocked()
	r.mu.Unlock()
	return p, nil
}

// RemoveAttachment drops the staged attachment. It reports whether one was
// staged.
func (r *Runner) RemoveAttachment() bool {
	removed := r.slot.Remove()
	r.mu.Lock()
	r.settleComposerLocked()
	r.mu.Unlock()
	return removed
}

// HasAttachment reports whether a file is staged.
func (r *Runner) HasAttachment() bool { return r.slot.Has() }

// settleComposerLocked moves between Idle and Composing to reflect the
// composer contents. In-flight and Closed states are left alone.
func (r *Runner) settleComposerLocked() {
	if r.state != Idle && r.state != Composing && r.state != Error {
		return
	}
	if strings.TrimSpace(r.text) != "" || r.slot.Has() {
		r.state = Composing
	} else {
		r.state = Idle
	}
}

// Submit submits the current composer text.
func (r *Runner) Submit(ctx context.Context) error {
	return r.SubmitTurn(ctx, r.Text())
}

// SubmitTurn runs one turn with text and the staged attachment, if any.
//
// Network and server failures are absorbed: one apology message is
// appended and nil is returned. Authentication failures return an error
// wrapping common.ErrUnauthorized and leave the runner in Error.
func (r *Runner) SubmitTurn(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state.InFlight() {
		r.mu.Unlock()
		return ErrBusy
	}
	pending := r.slot.Take()
	if text == "" && pending == nil {
		r.mu.Unlock()
		return ErrEmptyTurn
	}
	if err := r.transitionLocked(Submitting); err != nil {
		r.mu.Unlock()
		pending.Release()
		return err
	}
	r.mu.Unlock()

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.lifetime, cancel)
	defer stop()

	userMsg := models.Message{Sender: models.SenderUser, Content: text}
	if pending != nil {
		defer pending.Release()
		if userMsg.Content == "" {
			userMsg.Content = AttachmentPlaceholder + pending.File.Name
		}
		userMsg.ImageURL = pending.PreviewURI()
	}
	if !r.emit(userMsg) {
		return ErrClosed
	}

	if pending == nil {
		return r.textRoundTrip(reqCtx, text)
	}
	return r.attachmentRoundTrip(reqCtx, pending)
}

func (r *Runner) textRoundTrip(ctx context.Context, text string) error {
	if err := r.transition(TextOnlyRoundTrip); err != nil {
		return err
	}

	_, err := r.backend.SendMessage(ctx, r.chatID, models.NewMessage{Sender: models.SenderUser, Content: text})
	if err != nil {
		return r.fail(ctx, err)
	}

	r.scheduleReply()
	return r.succeed()
}

func (r *Runner) attachmentRoundTrip(ctx context.Context, pending *attachment.Pending) error {
	if err := r.transition(AttachmentRoundTrip); err != nil {
		return err
	}

	res, err := r.backend.Redact(ctx, pending.File, r.cfg.Options)
	if err != nil {
		return r.fail(ctx, err)
	}

	r.log.Debug(ctx, "redaction result", "task_id", res.TaskID, "detections", len(res.Detections))
	if !r.emit(models.Message{
		Sender:   models.SenderAssistant,
		Content:  FormatDetections(res),
		ImageURL: ImageRef(res),
	}) {
		return ErrClosed
	}
	pending.Release()
	if err := r.succeed(); err != nil {
		return err
	}
	r.runHook(context.WithoutCancel(ctx), res)
	return nil
}

// runHook hands res to the result hook on a tracked goroutine.
func (r *Runner) runHook(ctx context.Context, res *models.DetectionResult) {
	if r.onResult == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.hooks.Add(1)
	go func() {
		defer r.hooks.Done()
		r.onResult(ctx, r.chatID, res)
	}()
}

func (r *Runner) succeed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.text = ""
	return r.settleLocked()
}

// settleLocked ends a turn: back to Idle, or Composing when the composer
// gained content while the turn was in flight.
func (r *Runner) settleLocked() error {
	if err := r.transitionLocked(Idle); err != nil {
		return err
	}
	r.settleComposerLocked()
	return nil
}

func (r *Runner) fail(ctx context.Context, err error) error {
	if r.isClosed() {
		r.log.Debug(ctx, "turn result dropped after close", "error", err)
		return ErrClosed
	}

	if errors.Is(err, common.ErrUnauthorized) {
		if terr := r.transition(Error); terr != nil {
			return terr
		}
		return fmt.Errorf("submit turn: %w", err)
	}

	r.log.Warn(ctx, "turn failed", "error", err)
	if !r.emit(models.Message{Sender: models.SenderAssistant, Content: Apology}) {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.settleLocked()
}

// emit appends msg unless the runner is closed.
func (r *Runner) emit(msg models.Message) bool {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if r.isClosed() {
		return false
	}
	msg.LocalID = uuid.NewString()
	msg.ChatID = r.chatID
	msg.CreatedAt = r.clock.Now()
	r.timeline.Append(msg)
	return true
}

func (r *Runner) scheduleReply() {
	delay := r.cfg.ReplyDelay
	if delay <= 0 {
		r.emit(models.Message{Sender: models.SenderAssistant, Content: ImagePrompt})
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	id := r.nextTimer
	r.nextTimer++
	r.timers[id] = r.clock.AfterFunc(delay, func() { r.fireReply(id) })
}

func (r *Runner) fireReply(id int) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	_, pending := r.timers[id]
	delete(r.timers, id)
	closed := r.closed
	r.mu.Unlock()

	if closed || !pending {
		return
	}
	r.timeline.Append(models.Message{
		LocalID:   uuid.NewString(),
		ChatID:    r.chatID,
		Sender:    models.SenderAssistant,
		Content:   ImagePrompt,
		CreatedAt: r.clock.Now(),
	})
}

// PendingReplies reports how many delayed replies have not fired yet.
func (r *Runner) PendingReplies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Close stops pending replies, cancels in-flight requests, releases the
// staged attachment and waits for running result hooks. It is idempotent.
func (r *Runner) Close() {
	r.emitMu.Lock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.emitMu.Unlock()
		return
	}
	r.closed = true
	r.state = Closed
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	r.mu.Unlock()
	r.emitMu.Unlock()

	r.cancel()
	r.slot.Remove()
	r.hooks.Wait()
}

func (r *Runner) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Runner) transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.transitionLocked(to)
}

func (r *Runner) transitionLocked(to State) error {
	if err := checkTransition(r.state, to); err != nil {
		return err
	}
	r.state = to
	return nil
}
