package intake

type CreateApplicationInput struct {
	FullName string `json:"full_name"`
	CPF      string `json:"cpf"`
	Email    string `json:"email"`
	LoanType string `json:"loan_type"`

	// ID and ClientToken are set by callers that reserve them ahead of the
	// write; a create with an id that already exists returns that record.
	ID          string `json:"-"`
	ClientToken string `json:"-"`
}

// CreatedDTO is the only place, besides the status gateway, where the client token is returned.
type CreatedDTO struct {
	ID             string   `json:"id"`
	ClientToken    string   `json:"client_token"`
	Status         string   `json:"status"`
	ApprovedAmount *float64 `json:"approved_amount"`
}
