package gormrepo

import (
	"context"

	appDomain "zro-loans/internal/domain/application"

	"gorm.io/gorm"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *appDomain.LoanApplication) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*appDomain.LoanApplication, error) {
	var out appDomain.LoanApplication
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) List(ctx context.Context) ([]appDomain.LoanApplication, error) {
	var out []appDomain.LoanApplication
	res := r.db.WithContext(ctx).Order("created_at DESC").Find(&out)
	return out, res.Error
}

// Approve sets status, amount and KYC in one statement, guarded on status = pending.
func (r *ApplicationRepository) Approve(ctx context.Context, id string, ap appDomain.Approval) (int64, error) {
	res := r.db.WithContext(ctx).Model(&appDomain.LoanApplication{}).
		Where("id = ? AND status = ?", id, appDomain.StatusPending).
		Updates(map[string]any{
			"status":          appDomain.StatusApproved,
			"approved_amount": ap.Amount.Round(2),
			"address":         ap.KYC.Address,
			"age":             ap.KYC.Age,
			"birth_date":      ap.KYC.BirthDate,
			"mother_name":     ap.KYC.MotherName,
			"gender":          ap.KYC.Gender,
			"cpf_status":      ap.KYC.CPFStatus,
			"cns_number":      ap.KYC.CNSNumber,
		})
	return res.RowsAffected, res.Error
}

func (r *ApplicationRepository) Reject(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&appDomain.LoanApplication{}).
		Where("id = ? AND status = ?", id, appDomain.StatusPending).
		Update("status", appDomain.StatusRejected)
	return res.RowsAffected, res.Error
}

func (r *ApplicationRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&appDomain.LoanApplication{})
	return res.RowsAffected, res.Error
}
