package storage

import (
	"time"
)

type Kind string

const (
	KindGeneral     Kind = "general"
	KindShiftStart  Kind = "shift-start"
	KindLunchOut    Kind = "lunch-out"
	KindLunchReturn Kind = "lunch-return"
	KindShiftEnd    Kind = "shift-end"
)

var kinds = []Kind{KindGeneral, KindShiftStart, KindLunchOut, KindLunchReturn, KindShiftEnd}

// Kinds returns all known note kinds in display order.
func Kinds() []Kind {
	res := make([]Kind, len(kinds))
	copy(res, kinds)
	return res
}

// Valid reports whether k is a known kind. Empty kind is valid and means general.
func (k Kind) Valid() bool {
	if k == "" {
		return true
	}
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// OrGeneral returns KindGeneral for an empty kind.
func (k Kind) OrGeneral() Kind {
	if k == "" {
		return KindGeneral
	}
	return k
}

type Note struct {
	ID      string    `json:"id" db:"id" yaml:"id"`
	OwnerID string    `json:"ownerId" db:"owner_id" yaml:"ownerId"`
	Time    time.Time `json:"time" db:"note_time" yaml:"time"`
	Text    string    `json:"text" db:"body" yaml:"text"`
	Kind    Kind      `json:"kind" db:"kind" yaml:"kind"`
	ImageID string    `json:"imageId,omitempty" db:"image_id" yaml:"imageId,omitempty"`
	VideoID string    `json:"videoId,omitempty" db:"video_id" yaml:"videoId,omitempty"`
}

// NotePatch holds the fields to change on update. Nil fields are left as is.
type NotePatch struct {
	Text    *string
	Kind    *Kind
	Time    *time.Time
	ImageID *string
	VideoID *string
}

func (p NotePatch) Apply(n *Note) {
	if p.Text != nil {
		n.Text = *p.Text
	}
	if p.Kind != nil {
		n.Kind = p.Kind.OrGeneral()
	}
	if p.Time != nil {
		n.Time = p.Time.UTC()
	}
	if p.ImageID != nil {
		n.ImageID = *p.ImageID
	}
	if p.VideoID != nil {
		n.VideoID = *p.VideoID
	}
}
