// Package dispatch translates teller UI actions into outbound session
// envelopes and folds tablet replies back into employee-side form data.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roboricindustries/tellerlink/pkg/pubsub"
	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
)

const defaultDebounce = 200 * time.Millisecond

type Options struct {
	Publisher pubsub.Publisher
	// Connected gates every publish; a disconnected action is logged and
	// dropped, never an error.
	Connected func() bool
	Topic     string
	Logger    *slog.Logger
	// DebounceDelay coalesces rapid visualization syncs. Default 200ms.
	DebounceDelay time.Duration
}

type Dispatcher struct {
	pub       pubsub.Publisher
	connected func() bool
	topic     string
	log       *slog.Logger
	debounce  time.Duration

	mu         sync.Mutex
	formData   map[string]string
	previews   map[string]string
	consentOK  bool
	vizPending *teller.ProductVisualizationSyncV1
	vizTimer   *time.Timer
	closed     bool
}

func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Connected == nil {
		opts.Connected = func() bool { return true }
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = defaultDebounce
	}
	return &Dispatcher{
		pub:       opts.Publisher,
		connected: opts.Connected,
		topic:     opts.Topic,
		log:       opts.Logger.With("op", "dispatch.Dispatcher"),
		debounce:  opts.DebounceDelay,
		formData:  make(map[string]string),
		previews:  make(map[string]string),
	}
}

// send composes and publishes one envelope. The liveness guard makes a
// disconnected action a logged no-op; the teller re-triggers it if it still
// matters after reconnection.
func (d *Dispatcher) send(ctx context.Context, t teller.MessageType, payload any) {
	if !d.connected() {
		d.log.Warn("action dropped: not connected", slog.String("type", string(t)))
		return
	}
	var data json.RawMessage
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			d.log.Error("marshal failed", slog.String("type", string(t)), slog.Any("error", err))
			return
		}
		data = body
	}
	env := common.Envelope{
		Meta: common.Meta{Type: string(t), Producer: "employee"},
		Data: data,
	}
	if err := d.pub.Publish(ctx, d.topic, env); err != nil {
		d.log.Warn("publish failed", slog.String("type", string(t)), slog.Any("error", err))
	}
}

func (d *Dispatcher) BeginCustomerLogin(ctx context.Context, c teller.Customer) {
	d.send(ctx, teller.TypeCustomerLoginStart, teller.CustomerLoginStartV1{Customer: c})
}

func (d *Dispatcher) CustomerLogin(ctx context.Context, c teller.Customer) {
	d.send(ctx, teller.TypeCustomerLogin, teller.CustomerLoginV1{Customer: c})
}

func (d *Dispatcher) CustomerLogout(ctx context.Context, reason string) {
	d.send(ctx, teller.TypeCustomerLogout, teller.CustomerLogoutV1{Reason: reason})
}

func (d *Dispatcher) RequestPrivacyConsent(ctx context.Context, consent teller.PrivacyConsentV1) {
	d.send(ctx, teller.TypePrivacyConsent, consent)
}

func (d *Dispatcher) SelectProduct(ctx context.Context, p teller.Product) {
	d.send(ctx, teller.TypeProductSelected, teller.ProductSelectedV1{Product: p})
}

func (d *Dispatcher) SyncProductDetail(ctx context.Context, p teller.Product) {
	d.send(ctx, teller.TypeProductDetailSync, teller.ProductDetailSyncV1{Product: p})
}

func (d *Dispatcher) StartEnrollment(ctx context.Context, enrollment teller.ProductEnrollmentV1) error {
	if err := enrollment.Validate(); err != nil {
		return err
	}
	d.send(ctx, teller.TypeProductEnrollment, enrollment)
	return nil
}

func (d *Dispatcher) NavigateForm(ctx context.Context, index int, form *teller.FormDescriptor, total int) {
	d.send(ctx, teller.TypeFormNavigation, teller.FormNavigationV1{
		CurrentFormIndex: index,
		CurrentForm:      form,
		TotalForms:       total,
	})
}

// FocusField publishes one envelope per teller click on a field; the tablet
// prompts interactively one field at a time, so fields are never batched.
func (d *Dispatcher) FocusField(ctx context.Context, focus teller.FieldFocusV1) error {
	if err := focus.Validate(); err != nil {
		return err
	}
	if focus.PrefillValue == "" {
		d.mu.Lock()
		focus.PrefillValue = d.formData[focus.FieldID]
		d.mu.Unlock()
	}
	d.send(ctx, teller.TypeFieldFocus, &focus)
	return nil
}

func (d *Dispatcher) CompleteEnrollment(ctx context.Context, done teller.EnrollmentCompletedV1) {
	d.send(ctx, teller.TypeEnrollmentCompleted, done)
}

func (d *Dispatcher) ShowComparison(ctx context.Context, analysis teller.ProductAnalysisV1) {
	d.send(ctx, teller.TypeProductAnalysis, analysis)
}

func (d *Dispatcher) CloseComparison(ctx context.Context) {
	d.send(ctx, teller.TypeProductAnalysisClose, nil)
}

func (d *Dispatcher) ResetToMain(ctx context.Context) {
	d.send(ctx, teller.TypeResetToMain, nil)
}

// PushScreen wraps another known message one level deep in screen-updated.
func (d *Dispatcher) PushScreen(ctx context.Context, inner teller.MessageType, payload any) error {
	if inner == teller.TypeScreenUpdated {
		return teller.ErrNestedScreenUpdate
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	d.send(ctx, teller.TypeScreenUpdated, teller.ScreenUpdatedV1{Type: inner, Data: body})
	return nil
}

// SyncVisualization coalesces rapid simulation-parameter changes behind a
// short debounce so slider input does not flood the channel. Only the last
// value within the window is published.
func (d *Dispatcher) SyncVisualization(viz teller.ProductVisualizationSyncV1) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.vizPending = &viz
	if d.vizTimer != nil {
		d.vizTimer.Stop()
	}
	d.vizTimer = time.AfterFunc(d.debounce, d.flushVisualization)
}

func (d *Dispatcher) flushVisualization() {
	d.mu.Lock()
	pending := d.vizPending
	d.vizPending = nil
	closed := d.closed
	d.mu.Unlock()
	if closed || pending == nil {
		return
	}
	d.send(context.Background(), teller.TypeProductVisualizationSync, pending)
}

// HandleReply consumes tablet→employee envelopes from the session topic.
func (d *Dispatcher) HandleReply(ctx context.Context, env common.Envelope) error {
	t, payload, err := teller.Decode(env)
	switch {
	case errors.Is(err, teller.ErrUnknownType):
		d.log.Debug("unknown reply ignored", slog.String("type", env.Meta.Type))
		return nil
	case err != nil:
		d.log.Warn("malformed reply discarded", slog.String("type", env.Meta.Type), slog.Any("error", err))
		return nil
	}

	switch t {
	case teller.TypeFieldInputComplete:
		p := payload.(*teller.FieldInputCompleteV1)
		d.mu.Lock()
		d.formData[p.FieldID] = p.FieldValue
		delete(d.previews, p.FieldID)
		d.mu.Unlock()
		d.log.Info("field captured", slog.String("field_id", p.FieldID))
	case teller.TypeFieldInputSync:
		p := payload.(*teller.FieldInputSyncV1)
		d.mu.Lock()
		d.previews[p.FieldID] = p.Value
		d.mu.Unlock()
	case teller.TypePrivacyConsentResponse:
		p := payload.(*teller.PrivacyConsentResponseV1)
		d.mu.Lock()
		d.consentOK = p.Accepted
		d.mu.Unlock()
		d.log.Info("consent answered", slog.Bool("accepted", p.Accepted))
	case teller.TypeTabletConnected, teller.TypeParticipantJoined:
		d.log.Info("peer present", slog.String("type", string(t)))
	default:
		// Employee-originated types echoing back on the shared topic.
	}
	return nil
}

// FormData returns a copy of the authoritative captured values.
func (d *Dispatcher) FormData() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.formData))
	for k, v := range d.formData {
		out[k] = v
	}
	return out
}

// Preview returns the live (non-authoritative) value for a field, if any.
func (d *Dispatcher) Preview(fieldID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.previews[fieldID]
	return v, ok
}

func (d *Dispatcher) ConsentAccepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consentOK
}

// Close cancels any pending debounce timer; nothing fires afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.vizTimer != nil {
		d.vizTimer.Stop()
		d.vizTimer = nil
	}
	d.vizPending = nil
}
