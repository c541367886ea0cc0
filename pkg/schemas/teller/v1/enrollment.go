package teller

type ProductEnrollmentV1 struct {
	ProductID   string           `json:"product_id"`
	ProductName string           `json:"product_name"`
	Forms       []FormDescriptor `json:"forms"`
}

func (e *ProductEnrollmentV1) Validate() error {
	var verr ValidationError
	if e.ProductID == "" {
		verr.add("product_id", "required")
	}
	if len(e.Forms) == 0 {
		verr.add("forms", "at least one form required")
	}
	if len(verr.Issues) > 0 {
		return &verr
	}
	return nil
}

type EnrollmentCompletedV1 struct {
	CustomerName string `json:"customer_name"`
	ProductName  string `json:"product_name"`
	SubmissionID string `json:"submission_id"`
}
