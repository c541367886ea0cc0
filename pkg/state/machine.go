// Package state implements the tablet-side controller: it consumes inbound
// session messages, applies suppression and precedence rules, and owns the
// page/modal/field-focus state space.
package state

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
	"github.com/roboricindustries/tellerlink/pkg/store"
)

type Options struct {
	// Publisher carries tablet→employee replies (field-input-complete,
	// consent responses). Defaults to a logging fallback.
	Publisher pubsub.Publisher
	// Topic is the session routing key replies are published on.
	Topic string
	// Cache is the best-effort local persistence; nil disables it.
	Cache  store.Store
	Logger *slog.Logger
	// Now is injectable for guard-window tests.
	Now func() time.Time
	// OnSuppressed observes dropped messages with the guard reason. The
	// drop itself stays silent on the wire; this is diagnostics only.
	OnSuppressed func(t teller.MessageType, reason string)
}

type handlerFunc func(ctx context.Context, payload any)

// Machine is the sole mutator of the tablet state. It applies one envelope
// at a time, synchronously, preserving delivery order. The mutex serializes
// the transport's delivery goroutine against local UI callbacks; there is
// never reentrant dispatch beyond the one-level screen-updated unwrap.
type Machine struct {
	mu       sync.Mutex
	st       TabletState
	overlays *Overlays

	// pendingConsent buffers a privacy-consent payload that arrived before
	// the customer logged in; it replays on login.
	pendingConsent *teller.PrivacyConsentV1

	pub          pubsub.Publisher
	topic        string
	cache        store.Store
	log          *slog.Logger
	now          func() time.Time
	onSuppressed func(t teller.MessageType, reason string)

	handlers map[teller.MessageType]handlerFunc
}

func NewMachine(opts Options) *Machine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = pubsub.NewFallback(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Machine{
		st:           newTabletState(),
		overlays:     NewOverlays(),
		pub:          opts.Publisher,
		topic:        opts.Topic,
		cache:        opts.Cache,
		log:          opts.Logger.With("op", "state.Machine"),
		now:          opts.Now,
		onSuppressed: opts.OnSuppressed,
	}
	m.handlers = map[teller.MessageType]handlerFunc{
		teller.TypeCustomerLoginStart:       m.handleLoginStart,
		teller.TypeCustomerLogin:            m.handleLogin,
		teller.TypeCustomerLogout:           m.handleLogout,
		teller.TypePrivacyConsent:           m.handlePrivacyConsent,
		teller.TypeProductSelected:          m.handleProductSelected,
		teller.TypeProductDetailSync:        m.handleProductDetail,
		teller.TypeProductVisualizationSync: m.handleVisualizationSync,
		teller.TypeProductEnrollment:        m.handleEnrollment,
		teller.TypeFormNavigation:           m.handleFormNavigation,
		teller.TypeFieldFocus:               m.handleFieldFocus,
		teller.TypeEnrollmentCompleted:      m.handleEnrollmentCompleted,
		teller.TypeProductAnalysis:          m.handleProductAnalysis,
		teller.TypeShowComparison:           m.handleProductAnalysis,
		teller.TypeProductAnalysisClose:     m.handleProductAnalysisClose,
		teller.TypeScreenUpdated:            m.handleScreenUpdated,
		teller.TypeResetToMain:              m.handleResetToMain,
		teller.TypeTabletConnected:          m.handlePresence,
		teller.TypeParticipantJoined:        m.handlePresence,
	}
	return m
}

// State returns a copy of the projection; presentation reads this.
func (m *Machine) State() TabletState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.clone()
}

func (m *Machine) Overlays() *Overlays { return m.overlays }

// Apply consumes one inbound envelope. Malformed bodies are logged and
// discarded; unknown types fall into a no-op branch. It never panics past
// the handler boundary.
func (m *Machine) Apply(ctx context.Context, env common.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("handler panic discarded",
				slog.String("type", env.Meta.Type), slog.Any("panic", r))
		}
	}()

	t, payload, err := teller.Decode(env)
	switch {
	case errors.Is(err, teller.ErrUnknownType):
		m.log.Debug("unknown message type ignored", slog.String("type", env.Meta.Type))
		return nil
	case err != nil:
		m.log.Warn("malformed envelope discarded",
			slog.String("type", env.Meta.Type), slog.Any("error", err))
		return nil
	}
	m.dispatch(ctx, t, payload)
	return nil
}

// dispatch runs the guard pipeline and then the handler. Also the reentry
// point for the one-level screen-updated unwrap.
func (m *Machine) dispatch(ctx context.Context, t teller.MessageType, payload any) {
	now := m.now()

	// Consent gate: before consent is processed only the allow-list passes;
	// a privacy-consent arriving pre-login is buffered, not dropped.
	if !m.st.PrivacyConsentProcessed && !consentAllowed[t] {
		if t == teller.TypePrivacyConsent {
			if !m.st.LoggedIn {
				if consent, ok := payload.(*teller.PrivacyConsentV1); ok {
					m.pendingConsent = consent
					m.log.Info("privacy consent buffered until login")
				}
				return
			}
			// Logged in: the consent request itself passes the gate so the
			// customer can actually answer it.
		} else {
			m.suppress(t, ReasonConsentPending)
			return
		}
	}

	// Enrollment lock: the enrollment workflow dominates screen syncs.
	if enrollmentSuppressed[t] && m.enrollmentLocked(now) {
		m.suppress(t, ReasonEnrollmentLock)
		return
	}

	// Recency guard: a visualization sync right after enrollment started is
	// stale by definition.
	if t == teller.TypeProductVisualizationSync && m.recencyBlocked(now) {
		m.suppress(t, ReasonRecencyWindow)
		return
	}

	handler, ok := m.handlers[t]
	if !ok {
		m.log.Debug("no transition for type", slog.String("type", string(t)))
		return
	}
	handler(ctx, payload)
}

func (m *Machine) suppress(t teller.MessageType, reason string) {
	m.log.Info("sync suppressed", slog.String("type", string(t)), slog.String("reason", reason))
	if m.onSuppressed != nil {
		m.onSuppressed(t, reason)
	}
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

func (m *Machine) handleLoginStart(ctx context.Context, payload any) {
	p, ok := payload.(*teller.CustomerLoginStartV1)
	if !ok {
		return
	}
	m.st.Customer = &p.Customer
	m.persistCustomer(ctx)
}

func (m *Machine) handleLogin(ctx context.Context, payload any) {
	p, ok := payload.(*teller.CustomerLoginV1)
	if !ok {
		return
	}
	m.st.Customer = &p.Customer
	m.st.LoggedIn = true
	m.persistCustomer(ctx)

	// Replay a consent request that arrived before login.
	if m.pendingConsent != nil {
		consent := m.pendingConsent
		m.pendingConsent = nil
		m.log.Info("replaying buffered privacy consent")
		m.dispatch(ctx, teller.TypePrivacyConsent, consent)
	}
}

func (m *Machine) handleLogout(ctx context.Context, payload any) {
	m.st = newTabletState()
	m.pendingConsent = nil
	m.overlays.CloseAll()
	if m.cache != nil {
		for _, key := range []string{store.KeyCustomer, store.KeyProduct, store.KeyFieldValues, store.KeyCurrentPage} {
			if err := m.cache.Delete(ctx, key); err != nil {
				m.log.Warn("cache clear failed", slog.String("key", key), slog.Any("error", err))
			}
		}
	}
}

func (m *Machine) handlePrivacyConsent(_ context.Context, payload any) {
	p, ok := payload.(*teller.PrivacyConsentV1)
	if !ok {
		return
	}
	m.overlays.Open(ModalPrivacyConsent, p)
}

// AcceptConsent is invoked by the presentation layer when the customer
// answers the consent prompt. Accepting opens the gate for the rest of the
// taxonomy; the decision is published back to the employee either way.
func (m *Machine) AcceptConsent(ctx context.Context, accepted bool, keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.PrivacyConsentProcessed = accepted
	m.overlays.Close(ModalPrivacyConsent)
	m.publish(ctx, teller.TypePrivacyConsentResponse, teller.PrivacyConsentResponseV1{
		Accepted: accepted,
		Keys:     keys,
		At:       m.now().UTC(),
	})
}

func (m *Machine) handleProductSelected(ctx context.Context, payload any) {
	p, ok := payload.(*teller.ProductSelectedV1)
	if !ok {
		return
	}
	m.setProduct(ctx, p.Product, PageProductDetail)
}

func (m *Machine) handleProductDetail(ctx context.Context, payload any) {
	p, ok := payload.(*teller.ProductDetailSyncV1)
	if !ok {
		return
	}
	m.setProduct(ctx, p.Product, PageProductDetail)
}

func (m *Machine) handleVisualizationSync(ctx context.Context, payload any) {
	p, ok := payload.(*teller.ProductVisualizationSyncV1)
	if !ok {
		return
	}
	m.st.SimulationAmount = p.SimulationAmount
	m.st.SimulationPeriod = p.SimulationPeriod
	m.setProduct(ctx, p.Product, PageProductVisualization)
}

func (m *Machine) setProduct(ctx context.Context, p teller.Product, page Page) {
	m.st.CurrentProduct = &p
	m.st.CurrentPage = page
	m.persistProduct(ctx)
	m.persistPage(ctx)
}

func (m *Machine) handleEnrollment(ctx context.Context, payload any) {
	p, ok := payload.(*teller.ProductEnrollmentV1)
	if !ok {
		return
	}
	if err := p.Validate(); err != nil {
		m.log.Warn("enrollment rejected", slog.Any("error", err))
		return
	}
	now := m.now()
	m.st.CurrentProduct = &teller.Product{ID: p.ProductID, Name: p.ProductName}
	m.st.Forms = p.Forms
	m.st.CurrentForm = &p.Forms[0]
	m.st.CurrentFormIndex = 0
	m.st.CurrentPage = PageProductEnrollment
	m.st.LastEnrollmentAt = now
	m.st.EnrollmentLockedUntil = now.Add(EnrollmentLockWindow)
	m.clearFieldFocus()
	m.persistProduct(ctx)
	m.persistPage(ctx)
}

func (m *Machine) handleFormNavigation(ctx context.Context, payload any) {
	p, ok := payload.(*teller.FormNavigationV1)
	if !ok {
		return
	}
	m.st.CurrentFormIndex = p.CurrentFormIndex
	switch {
	case p.CurrentForm != nil:
		m.st.CurrentForm = p.CurrentForm
	case p.CurrentFormIndex >= 0 && p.CurrentFormIndex < len(m.st.Forms):
		m.st.CurrentForm = &m.st.Forms[p.CurrentFormIndex]
	}
	// Navigating forms always cancels in-flight field focus.
	m.clearFieldFocus()
	m.persistPage(ctx)
}

func (m *Machine) handleFieldFocus(_ context.Context, payload any) {
	p, ok := payload.(*teller.FieldFocusV1)
	if !ok {
		return
	}
	if err := p.Validate(); err != nil {
		m.log.Warn("field focus rejected", slog.Any("error", err))
		return
	}
	if p.FieldType == teller.FieldTypeSignature {
		// Signature capture has its own surface; it never enters the
		// generic input mode.
		m.overlays.Open(ModalSignature, p)
		return
	}
	if p.PrefillValue == "" {
		if cached, ok := m.st.FieldValues[p.FieldID]; ok {
			p.PrefillValue = cached
		}
	}
	m.st.FocusedField = &teller.FieldDescriptor{
		FieldID:    p.FieldID,
		FieldLabel: p.FieldLabel,
		FieldType:  p.FieldType,
	}
	m.st.IsFieldInputMode = true
}

// CompleteFieldInput is invoked by the presentation layer when the customer
// submits the prompted value. It clears input mode, stores the value under
// its field id, and publishes field-input-complete back to the session.
func (m *Machine) CompleteFieldInput(ctx context.Context, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	focused := m.st.FocusedField
	if focused == nil {
		return
	}
	m.st.FieldValues[focused.FieldID] = value
	m.clearFieldFocus()
	m.persistFieldValues(ctx)
	m.publish(ctx, teller.TypeFieldInputComplete, teller.FieldInputCompleteV1{
		FieldID:    focused.FieldID,
		FieldValue: value,
		FieldName:  focused.FieldLabel,
		Timestamp:  m.now().UTC(),
	})
}

// SyncFieldInput streams a live keystroke preview to the employee screen.
// Not authoritative; only CompleteFieldInput commits the value.
func (m *Machine) SyncFieldInput(ctx context.Context, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.FocusedField == nil {
		return
	}
	m.publish(ctx, teller.TypeFieldInputSync, teller.FieldInputSyncV1{
		FieldID: m.st.FocusedField.FieldID,
		Value:   value,
	})
}

func (m *Machine) clearFieldFocus() {
	m.st.FocusedField = nil
	m.st.IsFieldInputMode = false
	m.overlays.Close(ModalSignature)
}

func (m *Machine) handleEnrollmentCompleted(ctx context.Context, payload any) {
	p, ok := payload.(*teller.EnrollmentCompletedV1)
	if !ok {
		return
	}
	m.overlays.Open(ModalEnrollmentSuccess, p)
	// Full reset, no partial variant.
	m.st.CurrentPage = PageWelcome
	m.st.CurrentProduct = nil
	m.st.Forms = nil
	m.st.CurrentForm = nil
	m.st.CurrentFormIndex = 0
	m.st.LastEnrollmentAt = time.Time{}
	m.st.EnrollmentLockedUntil = time.Time{}
	m.clearFieldFocus()
	m.persistProduct(ctx)
	m.persistPage(ctx)
}

func (m *Machine) handleProductAnalysis(_ context.Context, payload any) {
	p, ok := payload.(*teller.ProductAnalysisV1)
	if !ok {
		return
	}
	var own []teller.Product
	if p.Product != nil {
		own = []teller.Product{*p.Product}
	}
	merged := MergeProducts(own, p.SelectedProducts)
	m.overlays.Open(ModalProductAnalysis, &ProductComparison{
		Products:         merged,
		SimulationAmount: p.SimulationAmount,
		SimulationPeriod: p.SimulationPeriod,
	})
}

func (m *Machine) handleProductAnalysisClose(_ context.Context, _ any) {
	m.overlays.Close(ModalProductAnalysis)
}

func (m *Machine) handleScreenUpdated(ctx context.Context, payload any) {
	p, ok := payload.(*teller.ScreenUpdatedV1)
	if !ok {
		return
	}
	inner, innerPayload, err := p.Unwrap()
	switch {
	case errors.Is(err, teller.ErrNestedScreenUpdate):
		m.suppress(inner, ReasonNestedEnvelope)
		return
	case errors.Is(err, teller.ErrUnknownType):
		m.log.Debug("wrapped unknown type ignored", slog.String("type", string(inner)))
		return
	case err != nil:
		m.log.Warn("wrapped payload discarded", slog.String("type", string(inner)), slog.Any("error", err))
		return
	}
	// One synchronous level of re-dispatch; the inner message passes
	// through the same guard pipeline.
	m.dispatch(ctx, inner, innerPayload)
}

func (m *Machine) handleResetToMain(ctx context.Context, _ any) {
	m.st.CurrentPage = PageWelcome
	m.st.CurrentProduct = nil
	m.st.Forms = nil
	m.st.CurrentForm = nil
	m.st.CurrentFormIndex = 0
	m.st.SimulationAmount = 0
	m.st.SimulationPeriod = 0
	m.st.LastEnrollmentAt = time.Time{}
	m.st.EnrollmentLockedUntil = time.Time{}
	m.clearFieldFocus()
	m.overlays.CloseAll()
	m.persistProduct(ctx)
	m.persistPage(ctx)
}

func (m *Machine) handlePresence(_ context.Context, _ any) {
	// Presence is informational; the transport tracks liveness.
}

// ProductComparison is the product-analysis overlay payload.
type ProductComparison struct {
	Products         []teller.Product
	SimulationAmount float64
	SimulationPeriod int
}

// ---------------------------------------------------------------------------
// Replies and persistence
// ---------------------------------------------------------------------------

func (m *Machine) publish(ctx context.Context, t teller.MessageType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("marshal reply failed", slog.String("type", string(t)), slog.Any("error", err))
		return
	}
	env := common.Envelope{
		Meta: common.Meta{Type: string(t), Producer: "tablet"},
		Data: data,
	}
	if err := m.pub.Publish(ctx, m.topic, env); err != nil {
		m.log.Warn("reply publish failed", slog.String("type", string(t)), slog.Any("error", err))
	}
}

func (m *Machine) persistCustomer(ctx context.Context) {
	if m.cache == nil || m.st.Customer == nil {
		return
	}
	m.persistJSON(ctx, store.KeyCustomer, m.st.Customer)
}

func (m *Machine) persistProduct(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if m.st.CurrentProduct == nil {
		if err := m.cache.Delete(ctx, store.KeyProduct); err != nil {
			m.log.Warn("cache delete failed", slog.String("key", store.KeyProduct), slog.Any("error", err))
		}
		return
	}
	m.persistJSON(ctx, store.KeyProduct, m.st.CurrentProduct)
}

func (m *Machine) persistFieldValues(ctx context.Context) {
	if m.cache == nil {
		return
	}
	m.persistJSON(ctx, store.KeyFieldValues, m.st.FieldValues)
}

func (m *Machine) persistPage(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Put(ctx, store.KeyCurrentPage, string(m.st.CurrentPage)); err != nil {
		m.log.Warn("cache put failed", slog.String("key", store.KeyCurrentPage), slog.Any("error", err))
	}
}

func (m *Machine) persistJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := m.cache.Put(ctx, key, string(data)); err != nil {
		m.log.Warn("cache put failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Restore loads the cached projection at startup. Best-effort: any missing
// or unreadable entry is skipped; the live protocol overwrites it anyway.
func (m *Machine) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		return
	}
	if raw, ok, _ := m.cache.Get(ctx, store.KeyCustomer); ok {
		var c teller.Customer
		if json.Unmarshal([]byte(raw), &c) == nil {
			m.st.Customer = &c
		}
	}
	if raw, ok, _ := m.cache.Get(ctx, store.KeyProduct); ok {
		var p teller.Product
		if json.Unmarshal([]byte(raw), &p) == nil {
			m.st.CurrentProduct = &p
		}
	}
	if raw, ok, _ := m.cache.Get(ctx, store.KeyFieldValues); ok {
		vals := make(map[string]string)
		if json.Unmarshal([]byte(raw), &vals) == nil {
			m.st.FieldValues = vals
		}
	}
	if raw, ok, _ := m.cache.Get(ctx, store.KeyCurrentPage); ok && raw != "" {
		m.st.CurrentPage = Page(raw)
	}
}
