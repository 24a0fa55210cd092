package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Request is a user's ask for a donor's food. A donor accepts it, then the
// user assigns it to one of its delivery boys.
type Request struct {
	Base
	DonorUsername string         `json:"donorUsername" gorm:"index;not null"`
	UserUsername  string         `json:"userUsername" gorm:"index;not null;uniqueIndex:idx_requests_user_post"`
	PostID        uint           `json:"post_id" gorm:"column:post_id;not null;uniqueIndex:idx_requests_user_post"`
	Location      string         `json:"location" gorm:"not null"`
	AvailableFood pq.StringArray `json:"availableFood" gorm:"type:text[];not null"`
	Timestamp     time.Time      `json:"timestamp" gorm:"not null"`
	IsAccepted    bool           `json:"isAccepted" gorm:"not null;default:false"`
	IsAssigned    bool           `json:"isAssigned" gorm:"not null;default:false"`
}

func (Request) TableName() string {
	return "requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if err := requireAccount(tx, &Donor{}, "Donor", r.DonorUsername); err != nil {
		return err
	}
	return requireAccount(tx, &User{}, "User", r.UserUsername)
}

// IsPending reports whether the donor has not acted on the request yet.
func (r *Request) IsPending() bool {
	return !r.IsAccepted && !r.IsAssigned
}

// DonorList returns the distinct donors of requests ordered by the time of
// their first request, newest first.
func DonorList(requests []Request) []string {
	first := make(map[string]time.Time)
	for _, r := range requests {
		if t, ok := first[r.DonorUsername]; !ok || r.Timestamp.Before(t) {
			first[r.DonorUsername] = r.Timestamp
		}
	}

	donors := make([]string, 0, len(first))
	for d := range first {
		donors = append(donors, d)
	}
	sort.Slice(donors, func(i, j int) bool {
		ti, tj := first[donors[i]], first[donors[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return donors[i] < donors[j]
	})
	return donors
}
