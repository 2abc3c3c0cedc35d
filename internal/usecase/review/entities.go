package review

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"zro-loans/internal/domain/application"

	"github.com/shopspring/decimal"
)

// ApproveInput accepts approved_amount as a JSON number or numeric string.
// It is kept raw so a malformed value is a field error rather than a bind failure.
type ApproveInput struct {
	ApprovedAmount json.RawMessage `json:"approved_amount"`
	Address        *string         `json:"address"`
	Age            *int            `json:"age"`
	BirthDate      *string         `json:"birth_date"`
	MotherName     *string         `json:"mother_name"`
	Gender         *string         `json:"gender"`
	CPFStatus      *string         `json:"cpf_status"`
	CNSNumber      *string         `json:"cns_number"`
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Decimal{}, false
	}
	if strings.HasPrefix(s, `"`) {
		u, err := strconv.Unquote(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		s = strings.TrimSpace(u)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ApplicationDTO is the admin view of a record; the client token is never included.
type ApplicationDTO struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	CPF            string    `json:"cpf"`
	Email          string    `json:"email"`
	LoanType       string    `json:"loan_type"`
	LoanTypeLabel  string    `json:"loan_type_label"`
	Status         string    `json:"status"`
	ApprovedAmount *float64  `json:"approved_amount"`
	Address        *string   `json:"address"`
	Age            *int      `json:"age"`
	BirthDate      *string   `json:"birth_date"`
	MotherName     *string   `json:"mother_name"`
	Gender         *string   `json:"gender"`
	CPFStatus      *string   `json:"cpf_status"`
	CNSNumber      *string   `json:"cns_number"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListDTO struct {
	Data  []ApplicationDTO  `json:"data"`
	Stats application.Stats `json:"stats"`
}

func toDTO(a *application.LoanApplication) ApplicationDTO {
	dto := ApplicationDTO{
		ID:            a.ID,
		FullName:      a.FullName,
		CPF:           a.CPF,
		Email:         a.Email,
		LoanType:      string(a.LoanType),
		LoanTypeLabel: a.LoanType.Label(),
		Status:        string(a.Status),
		Address:       a.Address,
		Age:           a.Age,
		BirthDate:     a.BirthDate,
		MotherName:    a.MotherName,
		Gender:        a.Gender,
		CPFStatus:     a.CPFStatus,
		CNSNumber:     a.CNSNumber,
		CreatedAt:     a.CreatedAt,
	}
	if a.ApprovedAmount.Valid {
		f := a.ApprovedAmount.Decimal.InexactFloat64()
		dto.ApprovedAmount = &f
	}
	return dto
}
