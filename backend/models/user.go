package models

import (
	"math"
	"time"
)

const RoleStudent = "estudiante"

type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash
	Role      string    `json:"rol"`
	Progress  *Progress `json:"progreso"`
	Badges    []Badge   `json:"insignias"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Progress struct {
	CompletedActivities int `json:"actividadesCompletadas"`
	Percentage          int `json:"porcentaje"`
}

type Badge struct {
	BadgeID      string    `json:"insigniaID"`
	DateObtained time.Time `json:"fechaObtenido"`
}

// UserUpdate carries a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
	Role     *string
	Progress *Progress
}

func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.Password == nil && u.Role == nil && u.Progress == nil
}

// ComputePercentage returns round(completed/total*100) clamped to [0, 100],
// or 0 when there are no activities.
func ComputePercentage(completed int, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	ratio := float64(completed) / float64(total) * 100
	if ratio >= 100 {
		return 100
	}
	return int(math.Round(ratio))
}

// Advance adds delta completed activities and recomputes the percentage
// against the current activity total. The count saturates at math.MaxInt
// and never drops below 0.
func (p *Progress) Advance(delta int, totalActivities int64) {
	switch {
	case delta > 0 && p.CompletedActivities > math.MaxInt-delta:
		p.CompletedActivities = math.MaxInt
	case p.CompletedActivities+delta < 0:
		p.CompletedActivities = 0
	default:
		p.CompletedActivities += delta
	}
	p.Percentage = ComputePercentage(p.CompletedActivities, totalActivities)
}
