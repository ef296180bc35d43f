package models

import "time"

// PoolID identifies one of the fixed prize tiers.
type PoolID string

const (
	PoolFirst  PoolID = "first"
	PoolSecond PoolID = "second"
	PoolThird  PoolID = "third"
	PoolFourth PoolID = "fourth"
	PoolLucky  PoolID = "lucky"
)

// AllPools lists the tiers in display order.
var AllPools = []PoolID{PoolFirst, PoolSecond, PoolThird, PoolFourth, PoolLucky}

// Valid reports whether id is one of the known tiers.
func (id PoolID) Valid() bool {
	for _, p := range AllPools {
		if p == id {
			return true
		}
	}
	return false
}

// IsLucky reports whether id is the lucky tier, which has its own exclusion rule.
func (id PoolID) IsLucky() bool {
	return id == PoolLucky
}

// PrizePool represents a single prize tier.
// MaxWinners is the number of people drawn per round for this tier.
type PrizePool struct {
	ID         PoolID `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	MaxWinners int    `json:"maxWinners" yaml:"maxWinners"`
	Color      string `json:"color" yaml:"color"`
	IsLucky    bool   `json:"isLucky" yaml:"isLucky"`
}

// Participant represents a person entering the lottery.
type Participant struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Dept string `json:"dept,omitempty" bson:"dept,omitempty"`
}

// Winner links a participant to the moment the draw picked them.
type Winner struct {
	Participant Participant `json:"participant" bson:"participant"`
	WonAt       time.Time   `json:"wonAt" bson:"wonAt"`
}

// DrawRecord stores the outcome of one completed round of a pool.
// RoundNumber is pool-local and assigned when the record is persisted.
type DrawRecord struct {
	ID          string    `json:"id" bson:"_id"`
	EventDate   string    `json:"eventDate" bson:"eventDate"`
	PoolID      PoolID    `json:"poolId" bson:"poolId"`
	PoolName    string    `json:"poolName" bson:"poolName"`
	RoundNumber int       `json:"roundNumber" bson:"roundNumber"`
	PrizeName   string    `json:"prizeName" bson:"prizeName"`
	Winners     []Winner  `json:"winners" bson:"winners"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// AppConfig is the operator-editable event configuration.
type AppConfig struct {
	EventDate string      `json:"eventDate" yaml:"eventDate"`
	Pools     []PrizePool `json:"pools" yaml:"pools"`
}
