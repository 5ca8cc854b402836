package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Student is the platform-wide person profile. The link to a specific academy
// lives in AcademyMembership so one profile can train at several studios.
type Student struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Email     string         `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Phone     string         `gorm:"type:varchar(30)" json:"phone" validate:"max=30"`
	BirthDate *time.Time     `gorm:"type:date;default:null" json:"birth_date,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Student) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

const (
	MembershipStatusActive   = "ativa"
	MembershipStatusInactive = "inativa"
)

// AcademyMembership links a student profile to one academy (tenant). It is
// auto-created on first enrollment when missing.
type AcademyMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AcademyID uint      `gorm:"not null;index:ux_academy_memberships_academy_student,unique,priority:1" json:"academy_id"`
	StudentID uint      `gorm:"not null;index:ux_academy_memberships_academy_student,unique,priority:2" json:"student_id"`
	Status    string    `gorm:"type:varchar(20);not null;default:'ativa'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
