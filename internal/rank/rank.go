package rank

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Rank is a member's standing inside a company. Ranks are totally ordered;
// the zero value None belongs to users without a company.
type Rank int

const (
	None Rank = iota
	Settler
	Officer
	Consul
	Governor
)

var names = map[Rank]string{
	Settler:  "SETTLER",
	Officer:  "OFFICER",
	Consul:   "CONSUL",
	Governor: "GOVERNOR",
}

// All lists the assignable ranks in ascending order.
func All() []Rank {
	return []Rank{Settler, Officer, Consul, Governor}
}

func Parse(s string) (Rank, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for r, name := range names {
		if name == want {
			return r, nil
		}
	}

	return None, fmt.Errorf("unknown rank %q", s)
}

func (r Rank) String() string {
	if name, ok := names[r]; ok {
		return name
	}

	return ""
}

func (r Rank) Valid() bool {
	_, ok := names[r]
	return ok
}

// Meets reports whether r is at or above required. None never meets anything.
func (r Rank) Meets(required Rank) bool {
	return r.Valid() && r >= required
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = None
		return nil
	}

	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// Value stores the rank by name; None is NULL.
func (r Rank) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, nil
	}

	return r.String(), nil
}

func (r *Rank) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = None
		return nil
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}

	return fmt.Errorf("scanning rank: unsupported type %T", src)
}
