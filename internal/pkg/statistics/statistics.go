package statistics

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/cache"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/database"
	"github.com/shopspring/decimal"
)

const (
	cacheKeyAcademy = "statistics:academy:%d" // format with academy id
	CacheExpiration = 5 * time.Minute
)

// AcademyStats are the dashboard aggregates for one academy.
type AcademyStats struct {
	ActiveEnrollments  int64           `json:"active_enrollments"`
	OverdueEnrollments int64           `json:"overdue_enrollments"`
	PendingContracts   int64           `json:"pending_contracts"`
	MonthRevenue       decimal.Decimal `json:"month_revenue"`
	MonthSettlements   int64           `json:"month_settlements"`
	ComputedAt         time.Time       `json:"computed_at"`
}

// GetAcademyStats returns the aggregates for one academy, served from cache
// when fresh.
func GetAcademyStats(academyID uint, now time.Time) (*AcademyStats, error) {
	key := fmt.Sprintf(cacheKeyAcademy, academyID)
	if raw, err := cache.Get(key); err == nil && raw != "" {
		var cached AcademyStats
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := computeAcademyStats(academyID, now)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(stats); err == nil {
		if err := cache.Set(key, string(encoded), CacheExpiration); err != nil {
			log.Printf("failed to cache statistics for academy %d: %v", academyID, err)
		}
	}
	return stats, nil
}

// InvalidateAcademyStats drops the cached aggregates after a mutation.
func InvalidateAcademyStats(academyID uint) {
	if err := cache.Delete(fmt.Sprintf(cacheKeyAcademy, academyID)); err != nil {
		log.Printf("failed to invalidate statistics cache for academy %d: %v", academyID, err)
	}
}

func computeAcademyStats(academyID uint, now time.Time) (*AcademyStats, error) {
	db := database.GetDB()
	stats := &AcademyStats{ComputedAt: now}

	if err := db.Model(&models.Enrollment{}).
		Where("academy_id = ? AND status = ?", academyID, models.EnrollmentStatusActive).
		Count(&stats.ActiveEnrollments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Enrollment{}).
		Where("academy_id = ? AND status = ?", academyID, models.EnrollmentStatusOverdue).
		Count(&stats.OverdueEnrollments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PackageContract{}).
		Where("academy_id = ? AND status = ?", academyID, models.PackageContractStatusPending).
		Count(&stats.PendingContracts).Error; err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	row := struct {
		Total decimal.Decimal
		N     int64
	}{}
	if err := db.Model(&models.Installment{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS n").
		Where("academy_id = ? AND status = ? AND paid_at >= ?", academyID, models.InstallmentStatusPaid, monthStart).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	stats.MonthRevenue = row.Total
	stats.MonthSettlements = row.N

	return stats, nil
}
