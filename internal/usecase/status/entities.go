package status

import (
	"zro-loans/internal/domain/application"
)

type CheckInput struct {
	ApplicationID string `json:"application_id"`
	ClientToken   string `json:"client_token"`
}

// StatusDTO is what an unauthenticated applicant may see: no identity fields, no token.
type StatusDTO struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	ApprovedAmount *float64 `json:"approved_amount"`
	Address        *string  `json:"address"`
	Age            *int     `json:"age"`
	BirthDate      *string  `json:"birth_date"`
	MotherName     *string  `json:"mother_name"`
	Gender         *string  `json:"gender"`
	CPFStatus      *string  `json:"cpf_status"`
	CNSNumber      *string  `json:"cns_number"`
}

// Terminal reports whether the snapshot shows a final decision.
func (d StatusDTO) Terminal() bool { return application.Status(d.Status).Terminal() }

func toDTO(a *application.LoanApplication) *StatusDTO {
	dto := &StatusDTO{
		ID:         a.ID,
		Status:     string(a.Status),
		Address:    a.Address,
		Age:        a.Age,
		BirthDate:  a.BirthDate,
		MotherName: a.MotherName,
		Gender:     a.Gender,
		CPFStatus:  a.CPFStatus,
		CNSNumber:  a.CNSNumber,
	}
	if a.ApprovedAmount.Valid {
		f := a.ApprovedAmount.Decimal.InexactFloat64()
		dto.ApprovedAmount = &f
	}
	return dto
}
