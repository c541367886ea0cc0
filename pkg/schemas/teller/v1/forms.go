package teller

type FormNavigationV1 struct {
	CurrentFormIndex int             `json:"current_form_index"`
	CurrentForm      *FormDescriptor `json:"current_form,omitempty"`
	TotalForms       int             `json:"total_forms,omitempty"`
}
