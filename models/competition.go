package models

import "time"

// Competition is owned by its creator; admins share administrative rights.
type Competition struct {
	ID                 int       `json:"id" db:"id"`
	Title              string    `json:"title" db:"title"`
	Description        string    `json:"description" db:"description"`
	CreatorID          int       `json:"creator_id" db:"creator_id"`
	AdminIDs           []int     `json:"admin_ids" db:"-"`
	Published          bool      `json:"published" db:"published"`
	HasRegistration    bool      `json:"has_registration" db:"has_registration"`
	IsMigratingDelayed bool      `json:"is_migrating_delayed" db:"is_migrating_delayed"`
	ImageKey           *string   `json:"-" db:"image_key"`
	ImageURL           *string   `json:"image_url,omitempty" db:"-"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`

	Phases []Phase `json:"phases,omitempty" db:"-"`
}

// CanAdminister reports whether userID is the creator or one of the admins.
func (c *Competition) CanAdminister(userID int) bool {
	if c == nil || userID <= 0 {
		return false
	}
	if c.CreatorID == userID {
		return true
	}
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsCreator reports whether userID created the competition.
func (c *Competition) IsCreator(userID int) bool {
	return c != nil && userID > 0 && c.CreatorID == userID
}

// CompetitionDefBundle tracks an uploaded competition definition archive
// until the creation job turns it into a Competition.
type CompetitionDefBundle struct {
	ID        int       `json:"id" db:"id"`
	OwnerID   int       `json:"owner_id" db:"owner_id"`
	BlobKey   string    `json:"blob_key" db:"blob_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
