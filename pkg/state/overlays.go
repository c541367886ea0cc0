package state

import "sync"

// Modal names. Each overlay is independently addressable: opening one never
// implicitly closes another.
const (
	ModalPrivacyConsent    = "privacy-consent"
	ModalSignature         = "signature"
	ModalCalculator        = "calculator"
	ModalProductAnalysis   = "product-analysis"
	ModalEnrollmentSuccess = "enrollment-success"
)

type Overlay struct {
	IsOpen bool
	Data   any
}

// Overlays is a keyed registry of named overlays consumed by presentation
// components.
type Overlays struct {
	mu sync.Mutex
	m  map[string]Overlay
}

func NewOverlays() *Overlays {
	return &Overlays{m: make(map[string]Overlay)}
}

// Open sets IsOpen and replaces Data. Pure overwrite: opening an already
// open modal is an idempotent overwrite, later data wins.
func (o *Overlays) Open(name string, data any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.m[name] = Overlay{IsOpen: true, Data: data}
}

// Close clears the overlay. Closing an already-closed modal is a no-op.
func (o *Overlays) Close(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.m[name] = Overlay{}
}

func (o *Overlays) CloseAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for name := range o.m {
		o.m[name] = Overlay{}
	}
}

func (o *Overlays) Get(name string) Overlay {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.m[name]
}

func (o *Overlays) IsOpen(name string) bool {
	return o.Get(name).IsOpen
}
