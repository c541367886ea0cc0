package teller

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
)

func envelope(t MessageType, payload any) common.Envelope {
	data, _ := json.Marshal(payload)
	return common.Envelope{
		Meta: common.Meta{ID: "m-1", Type: string(t), Time: time.Now()},
		Data: data,
	}
}

func TestDecode_KnownType(t *testing.T) {
	env := envelope(TypeProductSelected, ProductSelectedV1{
		Product: Product{ID: "p-1", Name: "Savings Plus"},
	})

	mt, payload, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, TypeProductSelected, mt)

	p, ok := payload.(*ProductSelectedV1)
	require.True(t, ok)
	assert.Equal(t, "p-1", p.Product.ID)
	assert.Equal(t, "Savings Plus", p.Product.Name)
}

func TestDecode_UnknownType(t *testing.T) {
	env := common.Envelope{Meta: common.Meta{Type: "made-up-type"}}

	_, _, err := Decode(env)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecode_MalformedBody(t *testing.T) {
	env := common.Envelope{
		Meta: common.Meta{Type: string(TypeProductSelected)},
		Data: json.RawMessage(`{not json`),
	}

	_, _, err := Decode(env)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownType)
}

func TestDecode_ShowComparisonAliasesProductAnalysis(t *testing.T) {
	env := envelope(TypeShowComparison, ProductAnalysisV1{SimulationAmount: 5000})

	_, payload, err := Decode(env)
	require.NoError(t, err)
	p, ok := payload.(*ProductAnalysisV1)
	require.True(t, ok)
	assert.Equal(t, float64(5000), p.SimulationAmount)
}

func TestScreenUpdated_UnwrapOneLevel(t *testing.T) {
	inner, _ := json.Marshal(FormNavigationV1{CurrentFormIndex: 2})
	wrapper := &ScreenUpdatedV1{Type: TypeFormNavigation, Data: inner}

	mt, payload, err := wrapper.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, TypeFormNavigation, mt)

	nav, ok := payload.(*FormNavigationV1)
	require.True(t, ok)
	assert.Equal(t, 2, nav.CurrentFormIndex)
}

func TestScreenUpdated_RejectsNestedWrapper(t *testing.T) {
	inner, _ := json.Marshal(ScreenUpdatedV1{Type: TypeResetToMain})
	wrapper := &ScreenUpdatedV1{Type: TypeScreenUpdated, Data: inner}

	_, _, err := wrapper.Unwrap()
	assert.ErrorIs(t, err, ErrNestedScreenUpdate)
}

func TestCustomer_NormalizesFieldVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Customer
	}{
		{
			name: "canonical",
			raw:  `{"id":"c-1","name":"Kim","phone":"0101","email":"kim@example.com"}`,
			want: Customer{ID: "c-1", Name: "Kim", Phone: "0101", Email: "kim@example.com"},
		},
		{
			name: "legacy backend variants",
			raw:  `{"customer_id":"c-2","customer_name":"Lee","phone_number":"0202","email_address":"lee@example.com"}`,
			want: Customer{ID: "c-2", Name: "Lee", Phone: "0202", Email: "lee@example.com"},
		},
		{
			name: "mixed, canonical wins",
			raw:  `{"id":"c-3","customer_id":"ignored","name":"Park","mobile":"0303"}`,
			want: Customer{ID: "c-3", Name: "Park", Phone: "0303"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Customer
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &c))
			assert.Equal(t, tc.want, c)
		})
	}
}

func TestEnrollmentValidate(t *testing.T) {
	e := &ProductEnrollmentV1{}
	err := e.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidContract)

	e = &ProductEnrollmentV1{ProductID: "p-1", Forms: []FormDescriptor{{Name: "A"}}}
	assert.NoError(t, e.Validate())
}
