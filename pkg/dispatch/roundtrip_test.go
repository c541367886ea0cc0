package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
	"github.com/roboricindustries/tellerlink/pkg/state"
)

// pipePublisher delivers each published envelope straight into a handler,
// standing in for the broker between the two roles.
type pipePublisher struct {
	deliver func(ctx context.Context, env common.Envelope) error
}

func (p *pipePublisher) Publish(ctx context.Context, _ string, env common.Envelope) error {
	return p.deliver(ctx, env)
}

func (p *pipePublisher) Close() error { return nil }

func TestEnrollmentScenario_EmployeeToTablet(t *testing.T) {
	ctx := context.Background()

	tabletReplies := &capturePublisher{}
	machine := state.NewMachine(state.Options{
		Publisher: tabletReplies,
		Topic:     "session.pair-1",
	})
	d := New(Options{
		Publisher: &pipePublisher{deliver: machine.Apply},
		Topic:     "session.pair-1",
	})
	defer d.Close()

	// Pair up: login, consent.
	d.CustomerLogin(ctx, teller.Customer{ID: "c-1", Name: "Kim"})
	d.RequestPrivacyConsent(ctx, teller.PrivacyConsentV1{Title: "Privacy"})
	require.True(t, machine.Overlays().IsOpen(state.ModalPrivacyConsent))
	machine.AcceptConsent(ctx, true, nil)

	// Enrollment with two forms lands on the first form.
	formA := teller.FormDescriptor{Name: "FormA", Fields: []teller.FieldDescriptor{
		{FieldID: "name", FieldLabel: "Full name", FieldType: "text"},
	}}
	formB := teller.FormDescriptor{Name: "FormB"}
	require.NoError(t, d.StartEnrollment(ctx, teller.ProductEnrollmentV1{
		ProductID: "p-1", ProductName: "Savings Plus",
		Forms: []teller.FormDescriptor{formA, formB},
	}))

	st := machine.State()
	assert.Equal(t, state.PageProductEnrollment, st.CurrentPage)
	require.NotNil(t, st.CurrentForm)
	assert.Equal(t, "FormA", st.CurrentForm.Name)
	assert.Equal(t, 0, st.CurrentFormIndex)

	// Field focus prompts the customer; input mode shows on the tablet.
	require.NoError(t, d.FocusField(ctx, teller.FieldFocusV1{
		FieldID: "name", FieldLabel: "Full name", FieldType: "text", FormIndex: 0,
	}))
	assert.True(t, machine.State().IsFieldInputMode)

	// Navigating to the second form cancels the open prompt.
	d.NavigateForm(ctx, 1, &formB, 2)
	st = machine.State()
	assert.Equal(t, 1, st.CurrentFormIndex)
	assert.False(t, st.IsFieldInputMode)

	// Completion resets the tablet and raises the success modal.
	d.CompleteEnrollment(ctx, teller.EnrollmentCompletedV1{
		CustomerName: "Kim", ProductName: "Savings Plus", SubmissionID: "s-1",
	})
	st = machine.State()
	assert.Equal(t, state.PageWelcome, st.CurrentPage)
	assert.Nil(t, st.CurrentProduct)
	assert.True(t, machine.Overlays().IsOpen(state.ModalEnrollmentSuccess))
}

func TestVisualizationSuppressedDuringEnrollment_Roundtrip(t *testing.T) {
	ctx := context.Background()

	machine := state.NewMachine(state.Options{Topic: "session.pair-2"})
	d := New(Options{
		Publisher: &pipePublisher{deliver: machine.Apply},
		Topic:     "session.pair-2",
	})
	defer d.Close()

	d.CustomerLogin(ctx, teller.Customer{ID: "c-2"})
	d.RequestPrivacyConsent(ctx, teller.PrivacyConsentV1{})
	machine.AcceptConsent(ctx, true, nil)

	require.NoError(t, d.StartEnrollment(ctx, teller.ProductEnrollmentV1{
		ProductID: "p-1", Forms: []teller.FormDescriptor{{Name: "FormA"}},
	}))

	// The employee's simulation screen keeps syncing; the tablet must hold
	// the enrollment flow.
	d.SyncProductDetail(ctx, teller.Product{ID: "p-9", Name: "Other"})
	st := machine.State()
	assert.Equal(t, state.PageProductEnrollment, st.CurrentPage)
	assert.Equal(t, "p-1", st.CurrentProduct.ID)
}
