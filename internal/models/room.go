package models

import (
	"time"

	"github.com/lib/pq"
)

// Room is a physical teaching space.
type Room struct {
	ID              string         `db:"id" json:"id"`
	Number          string         `db:"room_number" json:"room_number"`
	Building        string         `db:"building" json:"building"`
	Floor           *int           `db:"floor" json:"floor,omitempty"`
	Capacity        *int           `db:"capacity" json:"capacity,omitempty"`
	Type            string         `db:"room_type" json:"room_type"`
	Equipment       pq.StringArray `db:"equipment" json:"equipment"`
	Accessible      bool           `db:"accessible" json:"accessible"`
	ResourceRoom    bool           `db:"resource_room" json:"resource_room"`
	Active          bool           `db:"active" json:"active"`
	UtilizationRate float64        `db:"utilization_rate" json:"utilization_rate"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// HasEquipment reports whether the room lists the given equipment flag.
func (r Room) HasEquipment(flag string) bool {
	for _, item := range r.Equipment {
		if item == flag {
			return true
		}
	}
	return false
}
