package application

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further status transition is defined.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

type LoanType string

const (
	LoanPersonal LoanType = "personal"
	LoanCLT      LoanType = "clt"
	LoanFGTS     LoanType = "fgts"
)

var loanTypeLabels = map[LoanType]string{
	LoanPersonal: "Empréstimo Pessoal",
	LoanCLT:      "Empréstimo CLT",
	LoanFGTS:     "Empréstimo FGTS",
}

// LoanTypes lists the offered products in display order.
func LoanTypes() []LoanType { return []LoanType{LoanPersonal, LoanCLT, LoanFGTS} }

func (t LoanType) Valid() bool {
	_, ok := loanTypeLabels[t]
	return ok
}

func (t LoanType) Label() string { return loanTypeLabels[t] }

// ParseLoanType accepts the raw query/body value; surrounding spaces and case are ignored.
func ParseLoanType(raw string) (LoanType, error) {
	t := LoanType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", ErrInvalidLoanType
	}
	return t, nil
}

// KYC holds the identity fields an admin fills in at approval time.
type KYC struct {
	Address    *string `gorm:"column:address;type:text" json:"address"`
	Age        *int    `gorm:"column:age" json:"age"`
	BirthDate  *string `gorm:"column:birth_date;size:10" json:"birth_date"`
	MotherName *string `gorm:"column:mother_name;size:255" json:"mother_name"`
	Gender     *string `gorm:"column:gender;size:32" json:"gender"`
	CPFStatus  *string `gorm:"column:cpf_status;size:64" json:"cpf_status"`
	CNSNumber  *string `gorm:"column:cns_number;size:32" json:"cns_number"`
}

// Table: loan_applications
type LoanApplication struct {
	ID             string              `gorm:"column:id;primaryKey;size:36" json:"id"`
	ClientToken    string              `gorm:"column:client_token;size:64;not null;index:idx_loan_applications_id_token" json:"-"`
	FullName       string              `gorm:"column:full_name;size:255;not null" json:"full_name"`
	CPF            string              `gorm:"column:cpf;size:32;not null" json:"cpf"`
	Email          string              `gorm:"column:email;size:255;not null" json:"email"`
	LoanType       LoanType            `gorm:"column:loan_type;size:16;not null" json:"loan_type"`
	Status         Status              `gorm:"column:status;size:16;not null;default:'pending';index" json:"status"`
	ApprovedAmount decimal.NullDecimal `gorm:"column:approved_amount;type:decimal(18,2)" json:"approved_amount"`
	KYC            `gorm:"embedded"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (LoanApplication) TableName() string { return "loan_applications" }

// Approval is written atomically with the pending -> approved transition.
type Approval struct {
	Amount decimal.Decimal
	KYC    KYC
}

// Counts of applications per status, as shown on the review dashboard.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func Tally(apps []LoanApplication) Stats {
	s := Stats{Total: len(apps)}
	for _, a := range apps {
		switch a.Status {
		case StatusPending:
			s.Pending++
		case StatusApproved:
			s.Approved++
		case StatusRejected:
			s.Rejected++
		}
	}
	return s
}
